package checker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/checker"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

func extractorConfig() config.CheckerConfig {
	return config.CheckerConfig{
		ReadySelector:       "#results",
		AvailableSelector:   ".result .badge-available",
		UnavailableSelector: ".result .badge-taken",
		AvailablePhrases:    []string{"Is Available"},
		UnavailablePhrases:  []string{"is taken", "already registered"},
	}
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    domain.Status
		wantErr error
	}{
		{
			name: "available selector",
			body: `<div id="results"><div class="result"><span class="badge-available">Yes</span></div></div>`,
			want: domain.StatusAvailable,
		},
		{
			name: "unavailable selector",
			body: `<div id="results"><div class="result"><span class="badge-taken">No</span></div></div>`,
			want: domain.StatusUnavailable,
		},
		{
			name: "available phrase with odd spacing and case",
			body: `<div id="results"><p>example.com   IS
				available!</p></div>`,
			want: domain.StatusAvailable,
		},
		{
			name: "unavailable phrase",
			body: `<div id="results"><p>Sorry, example.com is already registered.</p></div>`,
			want: domain.StatusUnavailable,
		},
		{
			name: "both sides is ambiguous",
			body: `<div id="results"><p>example.com is taken. example.net is available.</p></div>`,
			want: domain.StatusUnknown,
		},
		{
			name: "no signal is unknown",
			body: `<div id="results"><p>Something went sideways.</p></div>`,
			want: domain.StatusUnknown,
		},
		{
			name: "script text is ignored",
			body: `<div id="results"><script>var s = "is available";</script><p>is taken</p></div>`,
			want: domain.StatusUnavailable,
		},
		{
			name:    "missing ready marker",
			body:    `<p>Loading...</p>`,
			want:    domain.StatusUnknown,
			wantErr: checker.ErrContentNotLoaded,
		},
	}

	e := checker.NewExtractor(extractorConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := e.Extract([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_NoPhrasesNoSelectors(t *testing.T) {
	t.Parallel()

	e := checker.NewExtractor(config.CheckerConfig{})
	got, err := e.Extract([]byte(`<p>is available</p>`))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknown, got)
}

func TestStrategy_URL(t *testing.T) {
	t.Parallel()

	s := checker.Strategy{Name: "search", URLTemplate: "https://r.test/search?q={domain}&tld={domain}"}
	assert.Equal(t, "https://r.test/search?q=xn--mnchen-3ya.de&tld=xn--mnchen-3ya.de", s.URL("xn--mnchen-3ya.de"))
}
