package resilience

import "time"

// Config holds the settings of every primitive guarding remote fetches.
type Config struct {
	Breaker  BreakerConfig  `yaml:"breaker"`
	Limiter  LimiterConfig  `yaml:"limiter"`
	Bulkhead BulkheadConfig `yaml:"bulkhead"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// Consecutive failures that open the circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// Consecutive half-open successes that close it again.
	SuccessThreshold int `yaml:"success_threshold"`
	// Time spent open before probing.
	OpenTimeout time.Duration `yaml:"open_timeout"`
	// Probes allowed in flight while half-open.
	HalfOpenProbes int `yaml:"half_open_probes"`
}

// LimiterConfig configures the token bucket shared by every prismctl process.
type LimiterConfig struct {
	Burst      float64       `yaml:"burst"`
	PerSecond  float64       `yaml:"per_second"`
	RetryAfter time.Duration `yaml:"retry_after"` // block applied on a 429 without Retry-After
}

// BulkheadConfig caps fetches in flight across every prismctl process.
type BulkheadConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DefaultConfig suits a self-hosted library server.
func DefaultConfig() Config {
	return Config{
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
			HalfOpenProbes:   1,
		},
		Limiter: LimiterConfig{
			Burst:      40,
			PerSecond:  8,
			RetryAfter: time.Minute,
		},
		Bulkhead: BulkheadConfig{
			MaxConcurrent: 8,
		},
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = d.Breaker.FailureThreshold
	}
	if c.Breaker.SuccessThreshold <= 0 {
		c.Breaker.SuccessThreshold = d.Breaker.SuccessThreshold
	}
	if c.Breaker.OpenTimeout <= 0 {
		c.Breaker.OpenTimeout = d.Breaker.OpenTimeout
	}
	if c.Breaker.HalfOpenProbes <= 0 {
		c.Breaker.HalfOpenProbes = d.Breaker.HalfOpenProbes
	}
	if c.Limiter.Burst <= 0 {
		c.Limiter.Burst = d.Limiter.Burst
	}
	if c.Limiter.PerSecond <= 0 {
		c.Limiter.PerSecond = d.Limiter.PerSecond
	}
	if c.Limiter.RetryAfter <= 0 {
		c.Limiter.RetryAfter = d.Limiter.RetryAfter
	}
	if c.Bulkhead.MaxConcurrent <= 0 {
		c.Bulkhead.MaxConcurrent = d.Bulkhead.MaxConcurrent
	}
	return c
}
