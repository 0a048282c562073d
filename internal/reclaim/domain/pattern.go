package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrBadPattern is returned for patterns that cannot be compiled.
var ErrBadPattern = errors.New("invalid url pattern")

// Pattern is a compiled site glob. '*' matches any run of characters; every
// other character matches itself, case-insensitively. The glob is not
// anchored: it matches if it occurs anywhere in the subject.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePattern compiles a site glob.
func CompilePattern(raw string) (*Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadPattern
	}
	var b strings.Builder
	b.WriteString("(?i)")
	for i := 0; i < len(raw); i++ {
		if raw[i] == '*' {
			b.WriteString(".*")
			continue
		}
		j := i
		for j < len(raw) && raw[j] != '*' {
			j++
		}
		b.WriteString(regexp.QuoteMeta(raw[i:j]))
		i = j - 1
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, errors.Join(ErrBadPattern, err)
	}
	return &Pattern{raw: raw, re: re}, nil
}

// String returns the glob the pattern was compiled from.
func (p *Pattern) String() string { return p.raw }

// Match reports whether the pattern matches rawURL or its hostname.
func (p *Pattern) Match(rawURL string) bool {
	if p == nil || p.re == nil {
		return false
	}
	if host := hostname(rawURL); host != "" && p.re.MatchString(host) {
		return true
	}
	return p.re.MatchString(rawURL)
}

// MatchURL compiles pattern and matches it against rawURL. A pattern that
// does not compile never matches.
func MatchURL(pattern, rawURL string) bool {
	p, err := CompilePattern(pattern)
	if err != nil {
		return false
	}
	return p.Match(rawURL)
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
