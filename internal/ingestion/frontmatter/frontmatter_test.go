package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = `% id: 420
% title: T
% date: 2024-01-01
% tags: a, b, c

Hello
`

func TestExtractCompleteDocument(t *testing.T) {
	md := Extract(sample)

	assert.Equal(t, Value{Text: "420", Present: true}, md.ID)
	assert.Equal(t, "T", md.Title.Text)
	assert.Equal(t, "2024-01-01", md.Date.Text)
	assert.Equal(t, "a, b, c", md.Tags.Text)
	assert.Equal(t, "Hello", md.Body)
	assert.True(t, md.Complete())
	assert.True(t, md.HasBody())
}

func TestExtractIgnoresUnknownKeysAndKeepsLastDuplicate(t *testing.T) {
	md := Extract("% id: 1\n% author: someone\n% id: 2\n% title: Two\n\nbody")

	assert.Equal(t, "2", md.ID.Text)
	assert.Equal(t, "Two", md.Title.Text)
	assert.False(t, md.Complete())
	assert.Equal(t, []Field{FieldDate, FieldTags}, md.Missing())
}

func TestExtractVariableHeaderLength(t *testing.T) {
	doc := "% id: 9\n% draft\n% title: Longer header\n% date: 2023-05-06\n% tags: go\n% series: notes\n\n# Heading\n\nText."
	md := Extract(doc)

	assert.True(t, md.Complete())
	assert.Equal(t, "# Heading\n\nText.", md.Body)
}

func TestExtractBodyWithoutBlankTerminator(t *testing.T) {
	md := Extract("% id: 1\n% title: t\n% date: 2024-01-01\n% tags: x\nFirst line of body\nsecond")

	assert.True(t, md.HasBody())
	assert.Equal(t, "First line of body\nsecond", md.Body)
}

func TestExtractPercentLineEndsHeader(t *testing.T) {
	for name, first := range map[string]string{
		"double percent": "%% note to self",
		"prose comment":  "% a sentence about the post",
		"bare percent":   "%",
	} {
		t.Run(name, func(t *testing.T) {
			md := Extract("% id: 1\n% title: t\n% date: 2024-01-01\n% tags: x\n" + first + "\nrest")

			assert.True(t, md.Complete())
			assert.True(t, md.HasBody())
			assert.Equal(t, first+"\nrest", md.Body)
		})
	}
}

func TestExtractHeaderOnlyIsTruncated(t *testing.T) {
	md := Extract("% id: 1\n% title: t\n% date: 2024-01-01\n% tags: x")

	assert.True(t, md.Complete())
	assert.False(t, md.HasBody())
	assert.Empty(t, md.Body)
}

func TestExtractBlankBodyIsTruncated(t *testing.T) {
	md := Extract("% id: 1\n% title: t\n% date: 2024-01-01\n% tags: x\n\n   \n")
	assert.False(t, md.HasBody())
}

func TestExtractOnlyReadsHeaderBlock(t *testing.T) {
	md := Extract("Plain note without header.\n% id: 5\n")

	assert.False(t, md.ID.Present)
	assert.True(t, md.HasBody())
}

func TestExtractHandlesCRLFAndBOM(t *testing.T) {
	md := Extract("\uFEFF% id: 3\r\n% title: Windows\r\n% date: 2022-02-02\r\n% tags: a, b\r\n\r\nBody\r\n")

	assert.Equal(t, "3", md.ID.Text)
	assert.Equal(t, "Windows", md.Title.Text)
	assert.Equal(t, "Body", md.Body)
}

func TestExtractBlankValueIsAbsent(t *testing.T) {
	md := Extract("% id: 1\n% title:   \n\nbody")
	assert.False(t, md.Title.Present)
}

func TestExtractEmptyInput(t *testing.T) {
	md := Extract("")
	assert.False(t, md.Complete())
	assert.False(t, md.HasBody())
}

func TestFieldString(t *testing.T) {
	for _, f := range Fields {
		parsed, ok := parseField(f.String())
		assert.True(t, ok)
		assert.Equal(t, f, parsed)
	}
	assert.Equal(t, "unknown", Field(99).String())
}
