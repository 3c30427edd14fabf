// Package privacy removes credentials and reporter locations from text that
// leaves the request path: log lines, error messages and telemetry.
package privacy

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Redacted replaces removed values.
const Redacted = "redacted"

var (
	urlPattern    = regexp.MustCompile(`\bhttps?://[^\s"']+`)
	jwtPattern    = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)

	// lng,lat pairs with at least two decimals, as sent to the geocoder
	coordPattern = regexp.MustCompile(`(-?\d{1,3}\.\d{2,})\s*,\s*(-?\d{1,2}\.\d{2,})`)
)

// ScrubMessage anonymizes URLs, strips tokens and coarsens coordinates to
// one decimal place (roughly 10 km).
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, scrubURL)
	scrubbed = jwtPattern.ReplaceAllString(scrubbed, "[jwt]")
	scrubbed = bearerPattern.ReplaceAllString(scrubbed, "Bearer "+Redacted)
	return coordPattern.ReplaceAllStringFunc(scrubbed, coarsenPair)
}

// AnonymizeURL drops user info and fragment and replaces every query value,
// keeping scheme, host, path and parameter names.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "[url]"
	}
	u.User = nil
	u.Fragment = ""

	if u.RawQuery != "" {
		query := u.Query()
		for key := range query {
			query[key] = []string{Redacted}
		}
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// scrubURL keeps punctuation that ends a sentence out of the URL.
func scrubURL(match string) string {
	trimmed := strings.TrimRight(match, ":,.;)")
	return AnonymizeURL(trimmed) + match[len(trimmed):]
}

func coarsenPair(pair string) string {
	m := coordPattern.FindStringSubmatch(pair)
	if m == nil {
		return pair
	}
	return coarsen(m[1]) + "," + coarsen(m[2])
}

// coarsen truncates a decimal to one fractional digit.
func coarsen(value string) string {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Redacted
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	whole, frac, _ := strings.Cut(s, ".")
	return whole + "." + frac[:1]
}
