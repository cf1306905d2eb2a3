package layout

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event is what a handler receives when the client fires an event.
type Event struct {
	// Target is the handler's target id.
	Target string

	// Name is the event name ("onclick", "oninput", ...).
	Name string

	// Data is the raw event payload.
	Data json.RawMessage

	fields map[string]any
}

func newEvent(target, name string, data json.RawMessage) Event {
	e := Event{Target: target, Name: name, Data: data}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &e.fields)
	}
	return e
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Get returns a payload field, or nil.
func (e Event) Get(key string) any {
	return e.fields[key]
}

// GetString returns a payload field as a string.
func (e Event) GetString(key string) string {
	switch v := e.fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// GetInt returns a numeric payload field as an int.
func (e Event) GetInt(key string) int {
	switch v := e.fields[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

// GetBool returns a boolean payload field.
func (e Event) GetBool(key string) bool {
	b, _ := e.fields[key].(bool)
	return b
}

// Value returns the "value" field input and change events carry.
func (e Event) Value() string {
	return e.GetString("value")
}

// MouseEvent is the payload of mouse events.
type MouseEvent struct {
	ClientX  float64 `json:"clientX"`
	ClientY  float64 `json:"clientY"`
	Button   int     `json:"button"`
	CtrlKey  bool    `json:"ctrlKey"`
	ShiftKey bool    `json:"shiftKey"`
	AltKey   bool    `json:"altKey"`
	MetaKey  bool    `json:"metaKey"`
}

// KeyboardEvent is the payload of keyboard events.
type KeyboardEvent struct {
	Key      string `json:"key"`
	CtrlKey  bool   `json:"ctrlKey"`
	ShiftKey bool   `json:"shiftKey"`
	AltKey   bool   `json:"altKey"`
	MetaKey  bool   `json:"metaKey"`
}

// FormData holds the fields of a submitted form.
type FormData struct {
	values map[string]string
}

// Get returns the value of a field.
func (f FormData) Get(key string) string {
	return f.values[key]
}

// Has reports whether the field was submitted.
func (f FormData) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// All returns a copy of all fields.
func (f FormData) All() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func formData(e Event) FormData {
	var payload struct {
		Fields map[string]string `json:"fields"`
	}
	_ = e.Decode(&payload)
	if payload.Fields == nil {
		payload.Fields = map[string]string{}
	}
	return FormData{values: payload.Fields}
}

// handler is a normalized event handler. Synchronous handlers run while the
// layout's dispatch lock is held; asynchronous ones run as background tasks.
type handler struct {
	sync  func(Event) error
	async func(context.Context, Event) error
}

// wrapHandler converts a user-provided handler to the internal form. It
// returns false for unsupported function types.
func wrapHandler(value any) (handler, bool) {
	switch h := value.(type) {
	// Simple click handler - no arguments
	case func():
		return handler{sync: func(Event) error { h(); return nil }}, true

	case func(Event):
		return handler{sync: func(e Event) error { h(e); return nil }}, true

	case func(Event) error:
		return handler{sync: h}, true

	// Input/Change handler - string value
	case func(string):
		return handler{sync: func(e Event) error { h(e.Value()); return nil }}, true

	case func(MouseEvent):
		return handler{sync: func(e Event) error {
			var m MouseEvent
			if err := e.Decode(&m); err != nil {
				return err
			}
			h(m)
			return nil
		}}, true

	case func(KeyboardEvent):
		return handler{sync: func(e Event) error {
			var k KeyboardEvent
			if err := e.Decode(&k); err != nil {
				return err
			}
			h(k)
			return nil
		}}, true

	case func(FormData):
		return handler{sync: func(e Event) error { h(formData(e)); return nil }}, true

	// Background handlers
	case func(context.Context):
		return handler{async: func(ctx context.Context, _ Event) error { h(ctx); return nil }}, true

	case func(context.Context, Event):
		return handler{async: func(ctx context.Context, e Event) error { h(ctx, e); return nil }}, true

	case func(context.Context, Event) error:
		return handler{async: h}, true

	default:
		return handler{}, false
	}
}
