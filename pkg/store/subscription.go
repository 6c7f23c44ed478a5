package store

// Subscription is the handle returned by Subscribe. It revokes one listener's
// membership in the broker.
type Subscription struct {
	broker *Broker
	reg    *registration
}

// Unsubscribe removes the listener. It is idempotent; calls after the first
// have no effect. Once Unsubscribe returns, events fanned out later on the
// same goroutine skip the listener, including one already in flight.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.reg == nil {
		return
	}
	s.broker.remove(s.reg)
}

// Active reports whether the listener is still registered.
func (s *Subscription) Active() bool {
	return s != nil && s.reg != nil && !s.reg.revoked.Load()
}

// ID returns the registration identifier used in logs and errors.
func (s *Subscription) ID() uint64 {
	if s == nil || s.reg == nil {
		return 0
	}
	return s.reg.id
}
