// Package circuitbreaker stops calling a failing dependency for a cooldown period.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned without calling the operation while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// State of a breaker.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half-open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Config for a Breaker.
type Config struct {
	// FailureThreshold consecutive failures open the breaker (default 5).
	FailureThreshold int
	// Cooldown before a single trial call is let through (default 30s).
	Cooldown time.Duration
	Logger   *zap.Logger
	// now is replaced in tests.
	now func() time.Time
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// New returns a closed breaker.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		logger:    cfg.Logger,
		now:       cfg.now,
	}
	if b.threshold <= 0 {
		b.threshold = 5
	}
	if b.cooldown <= 0 {
		b.cooldown = 30 * time.Second
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Execute runs fn unless the breaker is open. While half-open only one trial
// call runs at a time; its outcome closes or re-opens the breaker.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

// State reports the current state, moving open to half-open once the cooldown has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

func (b *Breaker) refresh() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.set(HalfOpen)
	}
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	switch b.state {
	case Open:
		return ErrOpen
	case HalfOpen:
		if b.trial {
			return ErrOpen
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) after(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasTrial := b.state == HalfOpen
	b.trial = false
	if ok {
		b.failures = 0
		if wasTrial {
			b.set(Closed)
		}
		return
	}
	b.failures++
	if wasTrial || b.failures >= b.threshold {
		b.openedAt = b.now()
		b.set(Open)
	}
}

func (b *Breaker) set(s State) {
	if b.state == s {
		return
	}
	b.logger.Info("circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", b.state.String()),
		zap.String("to", s.String()),
		zap.Int("failures", b.failures),
	)
	b.state = s
	if s == Closed {
		b.failures = 0
	}
}
