// Package service implements the social graph and engagement operations on top
// of the repositories. Every store call runs through retry with its own timeout.
package service

import (
	"time"

	"socialhub/internal/retry"
)

// Option adjusts the store-call policy or the clock of a service.
type Option func(*settings)

type settings struct {
	policy retry.Policy
	now    func() time.Time
}

// WithRetryPolicy sets the timeout and retry budget applied to store calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *settings) { s.policy = p }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{policy: retry.DefaultPolicy(), now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// FlagSource evaluates feature flags for an identity.
type FlagSource interface {
	Enabled(name string, userID uint) bool
}

func flagOn(flags FlagSource, name string, userID uint) bool {
	return flags != nil && flags.Enabled(name, userID)
}
