package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Tripper is implemented by errors that know whether they implicate the
// server. Errors that don't implement it trip the breaker, as network
// failures should.
type Tripper interface {
	Trips() bool
}

// Backoffer is implemented by errors carrying a server back-off request.
type Backoffer interface {
	Backoff() (time.Duration, bool)
}

// Gate guards remote fetches to one host with the limiter, the bulkhead
// and the breaker, in that order: the breaker reserves a half-open probe,
// so it goes last to never leak one on a later rejection.
type Gate struct {
	host     string
	limiter  *Limiter
	bulkhead *Bulkhead
	breaker  *Breaker
	logger   zerolog.Logger
}

// NewGate creates a gate for host backed by store.
func NewGate(store *Store, host string, cfg Config, logger zerolog.Logger) *Gate {
	cfg = cfg.withDefaults()
	return &Gate{
		host:     host,
		limiter:  NewLimiter(store, host, cfg.Limiter),
		bulkhead: NewBulkhead(store, host, cfg.Bulkhead),
		breaker:  NewBreaker(store, host, cfg.Breaker),
		logger:   logger.With().Str("host", host).Logger(),
	}
}

// Do runs fn unless a primitive rejects it, then feeds the outcome back.
// Rejections are *RejectedError values wrapping ErrRateLimited,
// ErrBulkheadFull or ErrCircuitOpen.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ok, wait := g.limiter.Allow(); !ok {
		return g.reject(ErrRateLimited, wait)
	}
	release, ok := g.bulkhead.Acquire()
	if !ok {
		return g.reject(ErrBulkheadFull, 0)
	}
	defer release()
	if !g.breaker.Allow() {
		return g.reject(ErrCircuitOpen, g.breaker.RetryIn())
	}

	err := fn(ctx)
	g.observe(ctx, err)
	return err
}

func (g *Gate) observe(ctx context.Context, err error) {
	var backoff Backoffer
	if errors.As(err, &backoff) {
		if d, ok := backoff.Backoff(); ok {
			g.logger.Warn().Dur("retry_after", d).Msg("server asked to back off")
			_ = g.limiter.Block(d)
		}
	}

	var tripper Tripper
	switch {
	case err == nil:
		_ = g.breaker.Success()
	case ctx.Err() != nil:
		_ = g.breaker.Release()
	case errors.As(err, &tripper) && !tripper.Trips():
		_ = g.breaker.Release()
	default:
		g.logger.Debug().Err(err).Msg("fetch failure counted against the circuit")
		_ = g.breaker.Failure()
	}
}

func (g *Gate) reject(reason error, retryAfter time.Duration) error {
	g.logger.Debug().Err(reason).Dur("retry_after", retryAfter).Msg("fetch rejected")
	return &RejectedError{Host: g.host, Reason: reason, RetryAfter: retryAfter}
}

// Breaker returns the gate's circuit breaker.
func (g *Gate) Breaker() *Breaker { return g.breaker }

// Limiter returns the gate's rate limiter.
func (g *Gate) Limiter() *Limiter { return g.limiter }

// Bulkhead returns the gate's bulkhead.
func (g *Gate) Bulkhead() *Bulkhead { return g.bulkhead }
