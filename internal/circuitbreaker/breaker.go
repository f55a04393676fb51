// Package circuitbreaker holds back calls to a failing lookup strategy until it has had time to recover.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker refuses a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 1
	defaultOpenTimeout      = 60 * time.Second
)

// State is the breaker state.
type State int

const (
	// StateClosed allows every call.
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. The checker runs without a breaker when it is zero.
	FailureThreshold int `yaml:"failure_threshold" env:"CHECKER_BREAKER_FAILURE_THRESHOLD"`
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int `yaml:"success_threshold"`
	// OpenTimeout is how long the circuit stays open.
	OpenTimeout time.Duration `yaml:"open_timeout" env:"CHECKER_BREAKER_OPEN_TIMEOUT"`
	// OnStateChange is called with the breaker name on every transition.
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = defaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
}

// Breaker is safe for concurrent use; one instance is shared by every worker using the same strategy.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(name string, config Config) *Breaker {
	config.SetDefaults()
	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Allow reports whether a call may proceed, moving an expired open circuit to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	elapsed := b.now().Sub(b.openedAt)
	if elapsed >= b.config.OpenTimeout {
		b.transitionTo(StateHalfOpen)
		return nil
	}
	return fmt.Errorf("%w: %s retries in %v", ErrCircuitOpen, b.name, b.config.OpenTimeout-elapsed)
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateOpen:
	}
}

func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0
	if next == StateOpen {
		b.openedAt = b.now()
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, next)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RetryAfter returns how long until an open circuit lets a trial call
// through. It is zero unless the circuit is open.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return 0
	}
	return max(b.config.OpenTimeout-b.now().Sub(b.openedAt), 0)
}

// Group lazily creates one breaker per name.
type Group struct {
	config Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGroup creates an empty group whose breakers share config.
func NewGroup(config Config) *Group {
	return &Group{config: config, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (g *Group) Get(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[name]; ok {
		return b
	}
	b := New(name, g.config)
	g.breakers[name] = b
	return b
}
