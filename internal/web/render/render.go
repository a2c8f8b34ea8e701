// Package render turns article Markdown into sanitized HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer converts Markdown with GitHub-flavoured extensions and strips
// anything the UGC policy does not allow. Published articles never change,
// so output is cached by article id.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  *lru.Cache[int64, template.HTML]
}

// New creates a Renderer caching up to size articles.
func New(size int) (*Renderer, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[int64, template.HTML](size)
	if err != nil {
		return nil, fmt.Errorf("creating render cache: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "div", "section", "a", "sup")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: policy,
		cache:  cache,
	}, nil
}

// Markdown renders source without caching.
func (r *Renderer) Markdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// Article renders the body of article id, reusing a cached result.
func (r *Renderer) Article(id int64, body string) (template.HTML, error) {
	if html, ok := r.cache.Get(id); ok {
		return html, nil
	}
	html, err := r.Markdown(body)
	if err != nil {
		return "", err
	}
	r.cache.Add(id, html)
	return html, nil
}
