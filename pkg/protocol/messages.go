package protocol

import (
	"encoding/json"

	"github.com/vango-dev/live/pkg/vdom"
)

// Message types.
const (
	TypeLayoutUpdate = "layout-update"
	TypeLayoutEvent  = "layout-event"
	TypeError        = "error"
)

// LayoutUpdate is sent to the client after every render. Exactly one of
// Root and Changes is set: Root replaces the client's tree, Changes patches
// it in order.
type LayoutUpdate struct {
	Type    string       `json:"type"`
	Seq     uint64       `json:"seq"`
	Root    any          `json:"root,omitempty"`
	Changes []vdom.Patch `json:"changes,omitempty"`
}

// NewFullUpdate creates an update that replaces the whole tree.
func NewFullUpdate(seq uint64, root any) *LayoutUpdate {
	return &LayoutUpdate{Type: TypeLayoutUpdate, Seq: seq, Root: root}
}

// NewPatchUpdate creates an update that patches the tree.
func NewPatchUpdate(seq uint64, changes []vdom.Patch) *LayoutUpdate {
	return &LayoutUpdate{Type: TypeLayoutUpdate, Seq: seq, Changes: changes}
}

// IsFull reports whether the update replaces the whole tree.
func (u *LayoutUpdate) IsFull() bool { return u.Root != nil }

// LayoutEvent is an event the client sends to a handler.
type LayoutEvent struct {
	Type   string          `json:"type"`
	Target string          `json:"target"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewLayoutEvent creates an event for target. data is marshaled to JSON; a
// nil data sends an empty payload.
func NewLayoutEvent(target string, data any) (*LayoutEvent, error) {
	ev := &LayoutEvent{Type: TypeLayoutEvent, Target: target}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		ev.Data = raw
	}
	return ev, nil
}

// ErrorMessage reports a message the server could not process.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
