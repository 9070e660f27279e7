package domainname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "example.com", "example.com"},
		{"uppercase", "EXAMPLE.Com", "example.com"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"https url", "https://example.com/admin/settings", "example.com"},
		{"http url with query", "http://example.com?tab=1", "example.com"},
		{"port suffix", "example.com:8443", "example.com"},
		{"url with port and path", "https://example.com:8443/x", "example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"wildcard", "*.Example.com", "*.example.com"},
		{"non-numeric colon suffix kept", "example.com:abc", "example.com:abc"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com:8443/path?x=1",
		"*.foo.example.com.",
		"plain.example.org",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "Clean must be idempotent for %q", in)
	}
}

func TestExpand(t *testing.T) {
	got := Expand("example.com, https://two.example.com/x\nthree.example.com three.example.com;four.example.com")
	assert.Equal(t, []string{
		"example.com",
		"two.example.com",
		"three.example.com",
		"four.example.com",
	}, got)
}

func TestExpandEmpty(t *testing.T) {
	assert.Empty(t, Expand("  , \n ;"))
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.com",
		"*.example.com",
		"xn--nxasmq6b.example",
		"a-b.example.co",
	}
	invalid := []string{
		"",
		"localhost", // single label
		"-bad.example.com",
		"bad-.example.com",
		"*.",
		"example..com",
		"http://example.com",
	}

	for _, d := range valid {
		assert.True(t, IsValid(d), "expected valid: %q", d)
	}
	for _, d := range invalid {
		assert.False(t, IsValid(d), "expected invalid: %q", d)
	}
}

func TestIsWildcard(t *testing.T) {
	assert.True(t, IsWildcard("*.example.com"))
	assert.False(t, IsWildcard("example.com"))
}
