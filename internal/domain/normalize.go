package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidDomain is returned when input cannot be turned into a registrable name.
	ErrInvalidDomain = errors.New("invalid domain")

	errEmptyInput = errors.New("normalize domain: empty input")
)

const wwwPrefix = "www."

// Normalize turns raw user input into the canonical form used as the store key:
// lowercased, scheme/path/port/trailing dot stripped, a leading "www." removed,
// and internationalized labels converted to their ASCII (punycode) form.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errEmptyInput
	}

	host, err := extractHost(s)
	if err != nil {
		return "", err
	}

	host = norm.NFC.String(strings.ToLower(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, wwwPrefix)

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidDomain, raw, err)
	}

	if !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("%w: %q has no top-level domain", ErrInvalidDomain, raw)
	}

	return ascii, nil
}

// extractHost strips scheme, path, query, and port from s.
func extractHost(s string) (string, error) {
	if strings.Contains(s, "://") {
		parsed, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidDomain, err)
		}
		if parsed.Hostname() == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidDomain, s)
		}
		return parsed.Hostname(), nil
	}

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	if s == "" {
		return "", errEmptyInput
	}
	return s, nil
}
