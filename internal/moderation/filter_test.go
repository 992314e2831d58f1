package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	f := NewDefault()

	tests := []struct {
		name   string
		text   string
		admit  bool
		reason Reason
	}{
		{"empty", "", true, ReasonNone},
		{"blank", "   \n\t", true, ReasonNone},
		{"clean", "I finally told my sister the truth today", true, ReasonNone},
		{"banned lower", "what the fuck", false, ReasonBanned},
		{"banned mixed case", "WhAt ThE FuCk", false, ReasonBanned},
		{"banned inside word", "I love reading Dickens", false, ReasonBanned},
		{"banned phrase", "just KILL YOURSELF already", false, ReasonBanned},
		{"https link", "see https://example.org/x", false, ReasonLink},
		{"http upper", "HTTP://EXAMPLE.ORG", false, ReasonLink},
		{"www", "go to www.something", false, ReasonLink},
		{"bare domain", "dm me at mysite.com please", false, ReasonLink},
		{"bare domain upper", "MYSITE.IO", false, ReasonLink},
		{"unknown tld", "file named notes.txt", true, ReasonNone},
		{"sentence dots", "end. start again", true, ReasonNone},
		{"tld prefix only", "example.community is long", true, ReasonNone},
		{"accented domain", "visit café.com now", false, ReasonLink},
		{"umlaut domain", "münchen.de", false, ReasonLink},
		{"non-latin domain", "см. пример.ru", false, ReasonLink},
		{"accented words", "déjà vu. encore", true, ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.Evaluate(tt.text)
			assert.Equal(t, tt.admit, d.Admit)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.admit, f.Admit(tt.text))
		})
	}
}

func TestLinkMatchIsWholeDomain(t *testing.T) {
	f := NewDefault()
	assert.Equal(t, "münchen.de", f.Evaluate("ich liebe münchen.de").Match)
	assert.Equal(t, "café.com", f.Evaluate("visit café.com now").Match)
	assert.Equal(t, "mysite.com", f.Evaluate("(mysite.com)").Match)
}

func TestLinkCheckedBeforeTerms(t *testing.T) {
	d := NewDefault().Evaluate("porn at www.x.org")
	assert.Equal(t, ReasonLink, d.Reason)
}

func TestMatcherOverlappingTerms(t *testing.T) {
	m := newMatcher([]string{"he", "she", "hers", "his", "  ", "SHE"})
	assert.Equal(t, 4, m.len())

	term, ok := m.first("ushers")
	require.True(t, ok)
	assert.Equal(t, "she", term)

	_, ok = m.first("xyz")
	assert.False(t, ok)

	term, ok = m.first("aHIs")
	require.True(t, ok)
	assert.Equal(t, "his", term)
}

func TestMatcherEmpty(t *testing.T) {
	m := newMatcher(nil)
	_, ok := m.first("anything")
	assert.False(t, ok)
}

func TestLoadTermsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("banned_terms: [gossip]\ntlds: [zip]\n"), 0o600))

	extra, err := LoadTermsFile(path)
	require.NoError(t, err)

	f := New(DefaultLists().Merge(extra))
	assert.False(t, f.Admit("no gossip here"))
	assert.False(t, f.Admit("download payload.zip"))
	assert.False(t, f.Admit("fuck"))
	assert.Equal(t, len(defaultTerms)+1, f.TermCount())
}

func TestLoadTermsFileMissing(t *testing.T) {
	_, err := LoadTermsFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
