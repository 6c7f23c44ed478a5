// Package storetest provides helpers for testing code built on the shared store.
//
// Recorder captures the events a listener receives and Reactions captures the
// calls a consumer.Base makes to its Reaction:
//
//	func TestCart(t *testing.T) {
//	    s := store.New()
//	    rec := storetest.NewRecorder()
//	    s.Subscribe(rec)
//
//	    s.Update(map[string]any{"items": 2})
//
//	    storetest.AssertKeys(t, rec.Last(t).Changes, "items")
//	}
package storetest
