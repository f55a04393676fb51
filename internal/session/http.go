package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
)

const (
	maxBodyBytes    = 5 * 1024 * 1024
	maxRedirectHops = 10
	acceptHeader    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// HTTPProvider creates HTTP sessions, each with its own cookie jar and rate
// limiter. Unless WithTransport is given, each session also gets its own
// connection pool, released when the session closes.
type HTTPProvider struct {
	cfg       config.SessionsConfig
	log       logger.Logger
	metrics   *metrics.Metrics
	transport http.RoundTripper
}

var _ Provider = (*HTTPProvider)(nil)

// ProviderOption configures an HTTPProvider.
type ProviderOption func(*HTTPProvider)

// WithTransport sets a round tripper shared by all sessions. Closing a
// session then leaves the shared pool alone.
func WithTransport(rt http.RoundTripper) ProviderOption {
	return func(p *HTTPProvider) { p.transport = rt }
}

// WithMetrics tracks open sessions on m.
func WithMetrics(m *metrics.Metrics) ProviderOption {
	return func(p *HTTPProvider) { p.metrics = m }
}

// NewHTTPProvider creates a provider for cfg.
func NewHTTPProvider(cfg config.SessionsConfig, log logger.Logger, opts ...ProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		cfg: cfg,
		log: log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire opens a new session and, when configured, loads the warmup page
// so the registrar hands out its cookies before the first lookup.
func (p *HTTPProvider) Acquire(ctx context.Context) (Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	limit := rate.Inf
	if p.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(p.cfg.RequestsPerSecond)
	}

	transport := p.transport
	var owned *http.Transport
	if transport == nil {
		owned = newTransport()
		transport = owned
	}

	s := &httpSession{
		id: uuid.NewString(),
		client: &http.Client{
			Transport:     transport,
			Jar:           jar,
			CheckRedirect: redirectPolicy(maxRedirectHops),
		},
		limiter:   rate.NewLimiter(limit, max(p.cfg.Burst, 1)),
		timeout:   p.cfg.Timeout,
		userAgent: p.cfg.UserAgent,
		metrics:   p.metrics,
		transport: owned,
	}
	p.metrics.SessionOpened()

	if p.cfg.WarmupURL != "" {
		page, warmErr := s.Fetch(ctx, p.cfg.WarmupURL)
		if warmErr == nil && page.StatusCode >= http.StatusBadRequest {
			warmErr = fmt.Errorf("warmup returned status %d", page.StatusCode)
		}
		if warmErr != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("warm up session: %w", warmErr)
		}
	}

	p.log.Debug("Session acquired", logger.String("session_id", s.id))
	return s, nil
}

type httpSession struct {
	id        string
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	metrics   *metrics.Metrics
	// transport is set only when the session owns its connection pool.
	transport *http.Transport
	closed    atomic.Bool
}

func (s *httpSession) ID() string { return s.id }

func (s *httpSession) Fetch(ctx context.Context, url string) (*Page, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func (s *httpSession) Close(context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.metrics.SessionClosed()
	return nil
}

func newTransport() *http.Transport {
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		return base.Clone()
	}
	return &http.Transport{Proxy: http.ProxyFromEnvironment}
}

func redirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
