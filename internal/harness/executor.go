package harness

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/pkg/utils"
)

const (
	taskPending int32 = iota
	taskRunning
	taskAbandoned
)

// ExecutorOptions configures NewExecutor.
type ExecutorOptions struct {
	// Workers bounds concurrent tasks (default 1). Extra tasks queue.
	Workers int
	Logger  *zap.Logger
	// OnAbandon is called when a caller stops waiting; started reports
	// whether the task was already running (it then runs to completion).
	OnAbandon func(op string, started bool)
}

// Executor runs functions on an ants pool and races them against a deadline.
type Executor struct {
	pool      *ants.Pool
	logger    *zap.Logger
	onAbandon func(op string, started bool)
}

// NewExecutor creates the worker pool.
func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Executor{pool: pool, logger: utils.OrNop(opts.Logger), onAbandon: opts.OnAbandon}, nil
}

// Workers is the pool capacity.
func (e *Executor) Workers() int {
	return e.pool.Cap()
}

// Running is the number of busy workers.
func (e *Executor) Running() int {
	return e.pool.Running()
}

// Close releases the pool. Tasks already running finish.
func (e *Executor) Close() {
	e.pool.Release()
}

type outcome[T any] struct {
	val T
	err error
}

// Run executes fn on the pool and waits at most timeout (<= 0 waits forever)
// measured from the call, so time spent queued counts. On expiry it returns a
// *TimeoutError at once; fn keeps running if it had started and its result is
// discarded, and if it had not started it never will. A cancelled ctx ends
// the wait the same way. fn receives ctx without its cancellation. Panics in
// fn are returned as errors.
func Run[T any](ctx context.Context, e *Executor, op string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	state := new(atomic.Int32)
	done := make(chan outcome[T], 1)
	submitted := make(chan error, 1)
	workCtx := context.WithoutCancel(ctx)

	task := func() {
		if !state.CompareAndSwap(taskPending, taskRunning) {
			return
		}
		var out outcome[T]
		func() {
			defer func() {
				if p := recover(); p != nil {
					out.err = fmt.Errorf("%s panicked: %v", op, p)
					e.logger.Error("task panicked", zap.String("op", op), zap.Any("panic", p))
				}
			}()
			out.val, out.err = fn(workCtx)
		}()
		done <- out
	}
	go func() {
		// Submit blocks while every worker is busy.
		if err := e.pool.Submit(task); err != nil {
			submitted <- err
		}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-done:
		return out.val, out.err
	case err := <-submitted:
		return zero, fmt.Errorf("submit %s: %w", op, err)
	case <-expired:
		select {
		case out := <-done:
			return out.val, out.err
		default:
		}
		e.abandon(op, state)
		return zero, &TimeoutError{Op: op, Deadline: timeout}
	case <-ctx.Done():
		e.abandon(op, state)
		return zero, ctx.Err()
	}
}

func (e *Executor) abandon(op string, state *atomic.Int32) {
	started := !state.CompareAndSwap(taskPending, taskAbandoned)
	e.logger.Warn("abandoned task", zap.String("op", op), zap.Bool("started", started))
	if e.onAbandon != nil {
		e.onAbandon(op, started)
	}
}
