// Package orderform is a minimal store consumer used by the demo command.
// It mirrors the shared store, records a click in it, and logs every update.
package orderform

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vango-dev/sharedstore/pkg/consumer"
	"github.com/vango-dev/sharedstore/pkg/store"
)

// KeyClicked is the store key written by Click.
const KeyClicked = "clicked"

// Form is an order form bound to a shared store.
type Form struct {
	*consumer.Base
	logger *slog.Logger
}

// New creates a Form for s. It does not subscribe until Mount.
func New(s *store.Store, logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Form{logger: logger.With("component", "orderform")}
	f.Base = consumer.NewBase(s, f, consumer.WithName("orderform"), consumer.WithLogger(logger))
	return f
}

// Mount activates the form and logs the store content it starts from.
func (f *Form) Mount() {
	f.Activate()
	f.logger.Info("mounted", "state", pretty(f.State()))
}

// Unmount deactivates the form.
func (f *Form) Unmount() {
	f.Deactivate()
}

// Click records the click in the shared store.
func (f *Form) Click() {
	f.UpdateStore(map[string]any{KeyClicked: true})
}

// Clicked reports whether the mirrored state has a recorded click.
func (f *Form) Clicked() bool {
	v, _ := f.State().Get(KeyClicked)
	clicked, _ := v.(bool)
	return clicked
}

// OnStoreUpdate logs the previous mirror, the changes and the new mirror.
func (f *Form) OnStoreUpdate(old store.Snapshot, changes store.ChangeSet, next store.Snapshot) {
	f.logger.Info("store updated",
		"old", pretty(old),
		"changes", pretty(changes),
		"new", pretty(next),
	)
}

// prettyJSON renders a value as indented JSON when it is logged.
type prettyJSON struct{ v any }

func pretty(v any) slog.LogValuer { return prettyJSON{v} }

func (p prettyJSON) LogValue() slog.Value {
	data, err := json.MarshalIndent(p.v, "", "  ")
	if err != nil {
		return slog.StringValue(fmt.Sprintf("%v", p.v))
	}
	return slog.StringValue(string(data))
}
