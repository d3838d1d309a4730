package feed

import (
	"net/url"
	"strings"
)

// displayDomain derives the hostname (minus a leading "www.") used for UI
// badges. Unparseable URLs yield an empty domain, never an error.
func displayDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	hostname := u.Hostname()
	if hostname == "" {
		return ""
	}

	return strings.TrimPrefix(hostname, "www.")
}
