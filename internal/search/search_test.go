package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"the art of programming", []string{"art", "programm"}},
		{"Articles about Go", []string{"articl", "go"}},
		{"a b c", []string{}},
		{"Postgres 16 tips", []string{"postgr", "16", "tip"}},
		{"bus", []string{"bus"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		terms   []string
		exclude []string
		mode    Mode
	}{
		{"plain", "rust axum", []string{"rust", "axum"}, []string{}, ModeAND},
		{"or", "rust OR go", []string{"rust", "go"}, []string{}, ModeOR},
		{"lowercase operators", "rust or go", []string{"rust", "go"}, []string{}, ModeOR},
		{"not", "database NOT mysql", []string{"database"}, []string{"mysql"}, ModeAND},
		{"dash", "database -mysql", []string{"database"}, []string{"mysql"}, ModeAND},
		{"duplicates", "go go Go", []string{"go"}, []string{}, ModeAND},
		{"stop words only", "the and of", []string{}, []string{}, ModeAND},
		{"empty", "   ", []string{}, []string{}, ModeAND},
		{"dangling not", "go NOT", []string{"go"}, []string{}, ModeAND},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.terms, plan.Terms)
			assert.Equal(t, tt.exclude, plan.Exclude)
			assert.Equal(t, tt.mode, plan.Mode)
			assert.Equal(t, tt.query, plan.Raw)
		})
	}
}

func TestPlanEmpty(t *testing.T) {
	assert.True(t, Parse("").Empty())
	assert.True(t, Parse("NOT rust").Empty())
	assert.False(t, Parse("rust").Empty())
}

func TestPlanKeyIsNormalized(t *testing.T) {
	assert.Equal(t, Parse("Go  Rust").Key(), Parse("rust go").Key())
	assert.Equal(t, Parse("go").Key(), Parse("OR go").Key())
	assert.NotEqual(t, Parse("go rust").Key(), Parse("go OR rust").Key())
	assert.NotEqual(t, Parse("go").Key(), Parse("go -rust").Key())
}
