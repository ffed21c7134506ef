// Package link classifies hyperlink targets as internal anchors or
// external URLs and resolves them into deduplicated graph nodes.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// Class is the outcome of classifying a link target.
type Class int

const (
	// Anchor is an in-document destination.
	Anchor Class = iota
	// URL is an external, normalized absolute URL.
	URL
	// Malformed could be parsed as neither.
	Malformed
)

func (c Class) String() string {
	switch c {
	case Anchor:
		return "anchor"
	case URL:
		return "url"
	default:
		return "malformed"
	}
}

// Target is a classified link target. Key is the normalized anchor id or
// href; for Malformed targets it is the trimmed raw text.
type Target struct {
	Class Class
	Key   string
	Raw   string
}

// anchorPrefixes introduce named destinations.
var anchorPrefixes = []string{"#", "dest:", "nameddest="}

// Classify decides whether raw names an internal anchor or an external
// URL and normalizes it accordingly.
func Classify(raw string) Target {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{Class: Malformed, Key: s, Raw: raw}
	}

	lower := strings.ToLower(s)
	for _, p := range anchorPrefixes {
		if strings.HasPrefix(lower, p) {
			if a := normalizeAnchor(s[len(p):]); a != "" {
				return Target{Class: Anchor, Key: a, Raw: raw}
			}
			return Target{Class: Malformed, Key: s, Raw: raw}
		}
	}
	if isDigits(s) {
		return Target{Class: Anchor, Key: s, Raw: raw}
	}

	href, err := NormalizeURL(s)
	if err != nil {
		return Target{Class: Malformed, Key: s, Raw: raw}
	}
	return Target{Class: URL, Key: href, Raw: raw}
}

func normalizeAnchor(a string) string {
	a = strings.TrimSpace(a)
	if u, err := url.PathUnescape(a); err == nil {
		a = u
	}
	return norm.NFC.String(strings.TrimSpace(a))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
	"ws":    "80",
	"wss":   "443",
}

var (
	errNoScheme = errors.New("missing scheme")
	errNoHost   = errors.New("missing host")
)

// NormalizeURL returns the canonical form of an absolute URL: scheme and
// host lower-cased, host in ASCII form, default port and trailing
// slashes removed, query and fragment preserved. A bare "www." host is
// read as http.
func NormalizeURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "www.") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return "", errNoScheme
	}

	if u.Opaque != "" {
		// mailto:, urn:, tel: and the like carry no authority.
		return scheme + ":" + u.Opaque + query(u) + fragment(u), nil
	}

	host := strings.ToLower(u.Hostname())
	if host == "" && scheme != "file" {
		return "", errNoHost
	}
	if host != "" && !strings.Contains(host, ":") {
		if host, err = idna.ToASCII(host); err != nil {
			return "", fmt.Errorf("host: %w", err)
		}
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host += ":" + port
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(host)
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))
	b.WriteString(query(u))
	b.WriteString(fragment(u))
	return b.String(), nil
}

func query(u *url.URL) string {
	if u.RawQuery == "" && !u.ForceQuery {
		return ""
	}
	return "?" + u.RawQuery
}

func fragment(u *url.URL) string {
	if u.Fragment == "" {
		return ""
	}
	return "#" + u.EscapedFragment()
}
