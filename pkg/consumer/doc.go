// Package consumer provides Base, a reusable adapter that connects a
// component to a shared store.
//
// A Base mirrors the store into a local snapshot and calls a Reaction after
// every change. The host calls Activate when the component is mounted and
// Deactivate when it is removed; the Reaction never runs outside that window.
//
// Components usually embed *Base and implement Reaction themselves:
//
//	type Cart struct {
//	    *consumer.Base
//	}
//
//	func NewCart(s *store.Store) *Cart {
//	    c := &Cart{}
//	    c.Base = consumer.NewBase(s, c, consumer.WithName("cart"))
//	    return c
//	}
//
//	func (c *Cart) OnStoreUpdate(old store.Snapshot, changes store.ChangeSet, next store.Snapshot) {
//	    if changes.Has("items") {
//	        // react to the new items
//	    }
//	}
//
// On activation the Reaction is called once with an empty old snapshot and a
// nil change set, then once per store event with the previous mirror, the
// event's change set and the new mirror.
package consumer
