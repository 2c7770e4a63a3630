package normalizer

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Transform is one of the fixed set of field-mapping transformations spec
// §4.1 allows: lowercase, uppercase, regex-replace, trim, integer-coerce,
// ip-coerce, timestamp-parse.
type Transform func(value string) (string, error)

func Lowercase() Transform {
	return func(v string) (string, error) { return strings.ToLower(v), nil }
}

func Uppercase() Transform {
	return func(v string) (string, error) { return strings.ToUpper(v), nil }
}

func Trim() Transform {
	return func(v string) (string, error) { return strings.TrimSpace(v), nil }
}

// RegexReplace applies pattern.ReplaceAllString(v, replacement).
func RegexReplace(pattern *regexp.Regexp, replacement string) Transform {
	return func(v string) (string, error) {
		return pattern.ReplaceAllString(v, replacement), nil
	}
}

// IntegerCoerce normalizes numeric text to its canonical base-10 form,
// rejecting non-numeric values rather than silently passing them through.
func IntegerCoerce() Transform {
	return func(v string) (string, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return "", fmt.Errorf("integer-coerce %q: %w", v, err)
		}
		return strconv.FormatInt(n, 10), nil
	}
}

// IPCoerce validates and canonicalizes an IPv4 or IPv6 literal.
func IPCoerce() Transform {
	return func(v string) (string, error) {
		ip := net.ParseIP(strings.TrimSpace(v))
		if ip == nil {
			return "", fmt.Errorf("ip-coerce %q: not a valid IP literal", v)
		}
		return ip.String(), nil
	}
}

// TimestampParse parses v with layout and re-renders it as RFC3339, the
// canonical on-the-wire form for event_timestamp.
func TimestampParse(layout string) Transform {
	return func(v string) (string, error) {
		t, err := time.Parse(layout, strings.TrimSpace(v))
		if err != nil {
			return "", fmt.Errorf("timestamp-parse %q with layout %q: %w", v, layout, err)
		}
		return t.UTC().Format(time.RFC3339), nil
	}
}
