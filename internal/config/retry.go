package config

import (
	"errors"
	"fmt"
	"time"
)

// RetryBackoffMode selects how the delay between retries grows.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig retries a failed scheduled run. Zero MaxRetries disables it.
type RetryConfig struct {
	MaxRetries int              `yaml:"max_retries,omitempty"`
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty"`
	Initial    time.Duration    `yaml:"initial,omitempty"`
	Max        time.Duration    `yaml:"max,omitempty"`
}

func (r RetryConfig) validate() error {
	switch r.Backoff {
	case "", RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("unknown backoff mode %q", r.Backoff)
	}
	if r.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if r.Initial < 0 || r.Max < 0 {
		return errors.New("delays cannot be negative")
	}
	return nil
}
