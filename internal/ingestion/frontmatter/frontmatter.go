// Package frontmatter extracts the "% key: value" header block from Markdown
// article sources.
//
// The header is the run of lines at the top of a file shaped like "% key: value"
// or a bare "% flag". The first line of any other shape ends it, including a
// line such as "%% note" that merely starts with "%". When that line is blank
// it is consumed as the terminator. Everything after it is the body.
package frontmatter

import (
	"regexp"
	"strings"
)

// Field is one recognized front-matter key.
type Field int

const (
	FieldID Field = iota
	FieldTitle
	FieldDate
	FieldTags
)

// Fields lists every recognized key in header order.
var Fields = []Field{FieldID, FieldTitle, FieldDate, FieldTags}

func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldTitle:
		return "title"
	case FieldDate:
		return "date"
	case FieldTags:
		return "tags"
	default:
		return "unknown"
	}
}

func parseField(key string) (Field, bool) {
	switch key {
	case "id":
		return FieldID, true
	case "title":
		return FieldTitle, true
	case "date":
		return FieldDate, true
	case "tags":
		return FieldTags, true
	default:
		return 0, false
	}
}

var (
	headerPattern = regexp.MustCompile(`^% \w+(:.*)?$`)
	linePattern   = regexp.MustCompile(`^% (\w+): (.+)$`)
)

// Value is an optional raw front-matter string.
type Value struct {
	Text    string
	Present bool
}

// Metadata is the raw result of scanning one source file.
type Metadata struct {
	ID    Value
	Title Value
	Date  Value
	Tags  Value
	Body  string

	terminated bool
}

// Get returns the raw value of f.
func (m *Metadata) Get(f Field) Value {
	switch f {
	case FieldID:
		return m.ID
	case FieldTitle:
		return m.Title
	case FieldDate:
		return m.Date
	case FieldTags:
		return m.Tags
	default:
		return Value{}
	}
}

func (m *Metadata) set(f Field, text string) {
	v := Value{Text: text, Present: true}
	switch f {
	case FieldID:
		m.ID = v
	case FieldTitle:
		m.Title = v
	case FieldDate:
		m.Date = v
	case FieldTags:
		m.Tags = v
	}
}

// Complete reports whether id, title, date and tags are all present. The
// body is deliberately not part of the predicate; see HasBody.
func (m *Metadata) Complete() bool {
	return len(m.Missing()) == 0
}

// Missing lists the absent required fields.
func (m *Metadata) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if !m.Get(f).Present {
			missing = append(missing, f)
		}
	}
	return missing
}

// HasBody reports whether the header was terminated and followed by
// non-blank content.
func (m *Metadata) HasBody() bool {
	return m.terminated && strings.TrimSpace(m.Body) != ""
}

// Extract scans text and returns its Metadata. It never fails; callers judge
// the result with Complete and HasBody. Unknown keys are ignored and the
// last occurrence of a repeated key wins.
func Extract(text string) Metadata {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var md Metadata
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	for ; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if !headerPattern.MatchString(line) {
			break
		}
		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		field, ok := parseField(match[1])
		if !ok {
			continue
		}
		if value := strings.TrimSpace(match[2]); value != "" {
			md.set(field, value)
		}
	}
	if i == len(lines) {
		return md
	}

	md.terminated = true
	if strings.TrimSpace(lines[i]) == "" {
		i++
	}
	md.Body = strings.TrimRight(strings.Join(lines[i:], "\n"), "\n")
	return md
}
