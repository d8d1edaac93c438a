package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a host breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrHostUnavailable is returned while a host's breaker is open.
var ErrHostUnavailable = eris.New("resilience: host unavailable, breaker open")

// Breaker stops calls to a host after Threshold consecutive failures. After
// Cooldown one probe call is let through; its outcome closes or reopens it.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a Breaker. Non-positive arguments get defaults of 5
// failures and 30s.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Allow returns ErrHostUnavailable if the breaker is open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.Cooldown {
			return ErrHostUnavailable
		}
		b.state = BreakerHalfOpen
	}
	return nil
}

// Record feeds the outcome of a call. Only transient errors count as failures;
// a permanent error such as a 404 says nothing about the host's health.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !IsTransient(err) {
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.Threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// HostBreakers hands out one Breaker per host.
type HostBreakers struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewHostBreakers creates an empty registry.
func NewHostBreakers(threshold int, cooldown time.Duration) *HostBreakers {
	return &HostBreakers{threshold: threshold, cooldown: cooldown, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for host, creating it on first use.
func (h *HostBreakers) Get(host string) *Breaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.breakers[host]
	if !ok {
		b = NewBreaker(h.threshold, h.cooldown)
		h.breakers[host] = b
	}
	return b
}
