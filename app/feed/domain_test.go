package feed

import "testing"

func TestDisplayDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.example.com/feed.xml", "example.com"},
		{"https://blog.example.com/rss", "blog.example.com"},
		{"http://example.com", "example.com"},
		{"https://www.example.co.uk/feed", "example.co.uk"},
		{"", ""},
		{"not a url", ""},
		{"https://", ""},
	}

	for _, tt := range tests {
		if got := displayDomain(tt.url); got != tt.expected {
			t.Errorf("displayDomain(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
