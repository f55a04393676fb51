package checker

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
)

// Strategy is one way of asking the registrar about a domain.
type Strategy struct {
	Name        string
	URLTemplate string
}

// URL renders the template for name.
func (s Strategy) URL(name string) string {
	return strings.ReplaceAll(s.URLTemplate, config.DomainPlaceholder, url.QueryEscape(name))
}

func strategiesFromConfig(cfg []config.Strategy) []Strategy {
	out := make([]Strategy, 0, len(cfg))
	for _, s := range cfg {
		out = append(out, Strategy{Name: s.Name, URLTemplate: s.URL})
	}
	return out
}

// isTransientStatus reports whether an HTTP status is worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}
