package utils

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// CanonicalHost returns a hostname in canonical form:
// - Trimmed of surrounding whitespace
// - Without trailing dots
// - Converted to its ASCII (punycode) form and lowercased
func CanonicalHost(host string) string {
	host = strings.TrimSpace(host)
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.ToLower(host)
}

// HostOf extracts the canonical hostname from a URL. Inputs without a scheme
// are treated as bare hostnames. ok is false when no hostname can be found.
func HostOf(rawURL string) (host string, ok bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host = CanonicalHost(u.Hostname())
	return host, host != ""
}

// SiteLabel returns the registrable domain of rawURL (eTLD+1), e.g.
// "https://mail.example.co.uk/inbox" -> "example.co.uk". It falls back to the
// bare host, and to the input itself when no host can be parsed.
func SiteLabel(rawURL string) string {
	host, ok := HostOf(rawURL)
	if !ok {
		return strings.TrimSpace(rawURL)
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}

// DerivePattern turns what a user typed into a URL pattern.
// Input that already carries a wildcard or a scheme is used verbatim; a dotted
// domain matches itself and its subdomains on any scheme; an undotted word
// matches any host containing it.
func DerivePattern(input string) string {
	input = strings.TrimSpace(input)
	if input == "" || strings.Contains(input, "*") || strings.Contains(input, "://") {
		return input
	}
	host := CanonicalHost(input)
	if !strings.Contains(host, ".") {
		return "*://*" + host + "*/*"
	}
	return "*://*." + host + "/*"
}

// DisplayName strips scheme and wildcard decoration from a site entry for
// human display: "*://*.youtube.com/*" -> "Youtube.com".
func DisplayName(site string) string {
	s := strings.TrimSpace(site)
	for _, prefix := range []string{"https://", "http://", "*://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "*.")
	s = strings.TrimSuffix(s, "/*")
	s = strings.ReplaceAll(s, "*", "")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
