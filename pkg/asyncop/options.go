package asyncop

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultRetryDelayBase = time.Second
	DefaultTimeout        = 30 * time.Second
)

// Options controls a single Execute call. Options are per-call, not stored on
// the manager; different calls for the same id may carry different options.
type Options struct {
	// MaxRetries caps automatic retries. With MaxRetries == n the operation
	// runs at most n times in total before reaching the exhausted state.
	MaxRetries int
	// RetryDelayBase is the base for exponential backoff: the k-th automatic
	// retry fires after RetryDelayBase * 2^(k-1). No jitter.
	RetryDelayBase time.Duration
	// Timeout bounds how long Execute waits for one attempt. It does not
	// bound how long the underlying operation actually runs.
	Timeout time.Duration
	// PreventUserInteraction is advisory: consumers may disable input while
	// the operation is loading. The manager itself never enforces it.
	PreventUserInteraction bool
}

func defaultOptions() Options {
	return Options{
		MaxRetries:             DefaultMaxRetries,
		RetryDelayBase:         DefaultRetryDelayBase,
		Timeout:                DefaultTimeout,
		PreventUserInteraction: true,
	}
}

// Option overrides one field of the default Options.
type Option func(*Options)

func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

func WithRetryDelayBase(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RetryDelayBase = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

func WithPreventUserInteraction(prevent bool) Option {
	return func(o *Options) { o.PreventUserInteraction = prevent }
}

// Func is the work an operation performs. The context carries the per-attempt
// deadline; cooperative operations should honor it, but a non-cooperative one
// merely has its late result ignored.
type Func func(ctx context.Context) (any, error)

// Operation describes one logical recurring async task. The id is the primary
// key for all state tracked by the manager.
type Operation struct {
	id   string
	run  Func
	opts Options
}

func NewOperation(id string, run Func, opts ...Option) Operation {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return Operation{id: id, run: run, opts: o}
}

func (op Operation) ID() string       { return op.id }
func (op Operation) Options() Options { return op.opts }

// Execute runs a typed operation through m. The result type is parameterized
// at the call site because different ids may carry different result types.
func Execute[T any](ctx context.Context, m *Manager, id string, run func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	res, err := m.Execute(ctx, NewOperation(id, wrap(run), opts...))
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Retry is the typed counterpart of Manager.Retry.
func Retry[T any](ctx context.Context, m *Manager, id string, run func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	res, err := m.Retry(ctx, NewOperation(id, wrap(run), opts...))
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func wrap[T any](run func(ctx context.Context) (T, error)) Func {
	return func(ctx context.Context) (any, error) {
		return run(ctx)
	}
}
