package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLoadingDebounce keeps very fast fetches from flickering the
// Loading broadcast.
const DefaultLoadingDebounce = 20 * time.Millisecond

type options struct {
	ctx         context.Context
	logger      zerolog.Logger
	metrics     *Metrics
	debounce    time.Duration
	errorBuffer int
	freshTTL    time.Duration
}

// Option configures a repository.
type Option func(*options)

// WithContext sets the parent context of every fetch. Canceling it cancels
// in-flight fetches but does not close the repository.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithLogger sets the repository logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records fetch telemetry into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLoadingDebounce overrides the Loading broadcast debounce window.
// Zero publishes every change immediately.
func WithLoadingDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithErrorBuffer sets the per-subscriber buffer of the Errors broadcast.
func WithErrorBuffer(n int) Option {
	return func(o *options) { o.errorBuffer = n }
}

// WithFreshTTL makes data lapse to not fresh d after the last successful
// fetch, as if Invalidate had been called. Zero never lapses.
func WithFreshTTL(d time.Duration) Option {
	return func(o *options) { o.freshTTL = d }
}

func buildOptions(opts []Option) options {
	o := options{
		ctx:         context.Background(),
		logger:      zerolog.Nop(),
		debounce:    DefaultLoadingDebounce,
		errorBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
