package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ChangePolicy controls how Set reports unchanged values.
type ChangePolicy uint8

const (
	// PolicyReportWrites reports the written key from Set even when the value
	// is unchanged. Update always filters unchanged keys. This is the default.
	PolicyReportWrites ChangePolicy = iota

	// PolicyReportChanges filters unchanged values from Set as well. An
	// unchanged Set still notifies, with an empty change set, the same way a
	// no-op Update does.
	PolicyReportChanges
)

// String returns the configuration name of the policy.
func (p ChangePolicy) String() string {
	switch p {
	case PolicyReportWrites:
		return "writes"
	case PolicyReportChanges:
		return "changes"
	default:
		return "unknown"
	}
}

// ParseChangePolicy parses "writes" or "changes". The empty string selects
// the default policy.
func ParseChangePolicy(s string) (ChangePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "writes":
		return PolicyReportWrites, nil
	case "changes":
		return PolicyReportChanges, nil
	default:
		return PolicyReportWrites, fmt.Errorf("store: unknown change policy %q", s)
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store and its broker.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChangePolicy sets how Set reports unchanged values.
func WithChangePolicy(p ChangePolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithMiddleware appends mutation middleware. Middleware runs in the order given.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) {
		for _, m := range mw {
			if m != nil {
				s.middleware = append(s.middleware, m)
			}
		}
	}
}

// WithInitial seeds the store contents. Seeding does not notify.
func WithInitial(values map[string]any) Option {
	return func(s *Store) {
		for k, v := range values {
			s.data[k] = v
		}
	}
}

// WithContext sets the base context handed to middleware for every mutation.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}
