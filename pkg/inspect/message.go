package inspect

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vango-dev/sharedstore/pkg/store"
)

// MessageType represents the type of inspector message.
type MessageType string

const (
	MessageTypeInitial MessageType = "initial"
	MessageTypeChange  MessageType = "change"
)

// ChangeMessage is the JSON form of store.Change.
type ChangeMessage struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Message is sent to inspector clients via WebSocket.
type Message struct {
	Type    MessageType              `json:"type"`
	Time    time.Time                `json:"time"`
	Old     map[string]any           `json:"old,omitempty"`
	State   map[string]any           `json:"state"`
	Changes map[string]ChangeMessage `json:"changes,omitempty"`
}

// NewMessage converts a store event to its wire form.
func NewMessage(ev store.Event) Message {
	msg := Message{
		Type:  MessageTypeChange,
		Time:  time.Now().UTC(),
		Old:   encodeSnapshot(ev.Old),
		State: encodeSnapshot(ev.State),
	}
	if ev.Initial() {
		msg.Type = MessageTypeInitial
	}
	if ev.Changes != nil {
		msg.Changes = make(map[string]ChangeMessage, len(ev.Changes))
		for k, c := range ev.Changes {
			msg.Changes[k] = ChangeMessage{Old: encodeValue(c.Old), New: encodeValue(c.New)}
		}
	}
	return msg
}

func encodeSnapshot(s store.Snapshot) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = encodeValue(v)
	}
	return out
}

// encodeValue returns v when it marshals to JSON and its %v form otherwise,
// so one unencodable value never hides the rest of a snapshot.
func encodeValue(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
