package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{"  example.com.  ", "example.com"},
		{"example.com...", "example.com"},
		{"bücher.de", "xn--bcher-kva.de"},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalHost(tt.in), "CanonicalHost(%q)", tt.in)
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://Mail.Example.com/inbox", "mail.example.com", true},
		{"http://example.com:8080/x", "example.com", true},
		{"example.org", "example.org", true},
		{"chrome://newtab", "newtab", true},
		{"", "", false},
		{"https://", "", false},
		{"http://[::1", "", false},
	}
	for _, tt := range tests {
		got, ok := HostOf(tt.in)
		assert.Equal(t, tt.wantOK, ok, "HostOf(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "HostOf(%q)", tt.in)
	}
}

func TestSiteLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://mail.example.com/inbox", "example.com"},
		{"https://www.bbc.co.uk/news", "bbc.co.uk"},
		{"youtube.com", "youtube.com"},
		{"https://localhost:3000/", "localhost"},
		{"not a url ::", "not a url ::"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SiteLabel(tt.in), "SiteLabel(%q)", tt.in)
	}
}

func TestDerivePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"youtube.com", "*://*.youtube.com/*"},
		{" YouTube.com ", "*://*.youtube.com/*"},
		{"reddit", "*://*reddit*/*"},
		{"*.example.com*", "*.example.com*"},
		{"https://news.ycombinator.com/", "https://news.ycombinator.com/"},
		{"bücher.de", "*://*.xn--bcher-kva.de/*"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DerivePattern(tt.in), "DerivePattern(%q)", tt.in)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"*://*.youtube.com/*", "Youtube.com"},
		{"https://twitter.com", "Twitter.com"},
		{"reddit", "Reddit"},
		{"*", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.in), "DisplayName(%q)", tt.in)
	}
}
