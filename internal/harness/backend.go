package harness

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/pkg/utils"
)

// State of a Backend.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "UNLOADED"
	case Loading:
		return "LOADING"
	case Loaded:
		return "LOADED"
	default:
		return "UNKNOWN"
	}
}

// Loader builds the backend value. It is called at most once at a time.
type Loader[T any] func(ctx context.Context) (T, error)

// BackendOptions configures NewBackend.
type BackendOptions struct {
	Logger *zap.Logger
	// OnLoad is called when a load attempt finishes.
	OnLoad func(elapsed time.Duration, err error)
	// OnState is called on every state change.
	OnState func(State)
}

type attempt[T any] struct {
	done chan struct{}
	err  error
}

// Backend lazily loads a value of type T. Only one load is in flight at a
// time; concurrent callers join it and each waits with its own deadline.
// Once LOADED the backend stays LOADED. A failed load returns to UNLOADED and
// the next Ensure starts over. A caller timing out also reports UNLOADED, but
// the attempt keeps running and later callers join it; if it then succeeds
// the backend becomes LOADED.
type Backend[T any] struct {
	load    Loader[T]
	exec    *Executor
	logger  *zap.Logger
	onLoad  func(time.Duration, error)
	onState func(State)

	mu       sync.Mutex
	state    State
	value    T
	lastErr  error
	inflight *attempt[T]
}

// NewBackend returns an UNLOADED backend with its own single-worker executor.
func NewBackend[T any](load Loader[T], opts BackendOptions) (*Backend[T], error) {
	logger := utils.OrNop(opts.Logger)
	exec, err := NewExecutor(ExecutorOptions{Workers: 1, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &Backend[T]{
		load:    load,
		exec:    exec,
		logger:  logger,
		onLoad:  opts.OnLoad,
		onState: opts.OnState,
	}, nil
}

// Ensure returns the loaded value, starting or joining a load if needed. It
// waits at most timeout (<= 0 waits forever). Load failures and timeouts are
// returned as *UnavailableError; a cancelled ctx returns ctx.Err().
func (b *Backend[T]) Ensure(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	b.mu.Lock()
	if b.state == Loaded {
		v := b.value
		b.mu.Unlock()
		return v, nil
	}
	a := b.inflight
	if a == nil {
		a = b.start()
	} else {
		b.setState(Loading)
	}
	b.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-a.done:
		if a.err != nil {
			return zero, &UnavailableError{Cause: a.err}
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.value, nil
	case <-expired:
		terr := &TimeoutError{Op: "backend load", Deadline: timeout}
		b.mu.Lock()
		if b.inflight == a {
			b.lastErr = terr
			b.setState(Unloaded)
		}
		b.mu.Unlock()
		b.logger.Warn("backend load timed out, attempt continues", zap.Duration("timeout", timeout))
		return zero, &UnavailableError{Cause: terr}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// start launches a load attempt. b.mu must be held.
func (b *Backend[T]) start() *attempt[T] {
	a := &attempt[T]{done: make(chan struct{})}
	b.inflight = a
	b.setState(Loading)
	b.logger.Info("loading backend")
	go func() {
		began := time.Now()
		v, err := Run(context.Background(), b.exec, "backend load", 0, func(ctx context.Context) (T, error) {
			return b.load(ctx)
		})
		b.finish(a, v, err, time.Since(began))
	}()
	return a
}

func (b *Backend[T]) finish(a *attempt[T], v T, err error, elapsed time.Duration) {
	b.mu.Lock()
	a.err = err
	if err == nil {
		b.value = v
		b.lastErr = nil
		b.setState(Loaded)
		b.logger.Info("backend loaded", zap.Duration("elapsed", elapsed))
	} else {
		b.lastErr = err
		b.setState(Unloaded)
		b.logger.Error("backend load failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	}
	b.inflight = nil
	close(a.done)
	b.mu.Unlock()
	if b.onLoad != nil {
		b.onLoad(elapsed, err)
	}
}

func (b *Backend[T]) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.onState != nil {
		b.onState(s)
	}
}

// State reports the current lifecycle state.
func (b *Backend[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Loaded reports whether the backend is ready.
func (b *Backend[T]) Loaded() bool {
	return b.State() == Loaded
}

// LastError is the error of the most recent failed or timed-out load, or nil.
func (b *Backend[T]) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Value returns the loaded value and whether it is available.
func (b *Backend[T]) Value() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.state == Loaded
}

// Close releases the load executor and closes the value if it is an io.Closer.
func (b *Backend[T]) Close() error {
	b.exec.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Loaded {
		return nil
	}
	if c, ok := any(b.value).(io.Closer); ok {
		return c.Close()
	}
	return nil
}
