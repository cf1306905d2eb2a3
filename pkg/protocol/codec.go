package protocol

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/vango-dev/live/internal/errors"
)

// EncodeUpdate marshals an update.
func EncodeUpdate(u *LayoutUpdate) ([]byte, error) {
	if u.Type == "" {
		u.Type = TypeLayoutUpdate
	}
	return json.Marshal(u)
}

// DecodeUpdate unmarshals an update. Clients and tests use it; the server
// only encodes updates.
func DecodeUpdate(data []byte) (*LayoutUpdate, error) {
	var u LayoutUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.FromError(err, errors.CodeInvalidMessage)
	}
	if u.Type != TypeLayoutUpdate {
		return nil, errors.New(errors.CodeInvalidMessage).
			WithDetailf("Unexpected message type %q.", u.Type)
	}
	return &u, nil
}

// EncodeEvent marshals an event.
func EncodeEvent(ev *LayoutEvent) ([]byte, error) {
	if ev.Type == "" {
		ev.Type = TypeLayoutEvent
	}
	return json.Marshal(ev)
}

// DecodeEvent unmarshals an event within limits. Errors are *errors.VangoError
// with code CodeMessageTooLarge or CodeInvalidMessage.
func DecodeEvent(data []byte, limits Limits) (*LayoutEvent, error) {
	limits = limits.normalized()
	if len(data) > limits.MaxMessageSize {
		return nil, errors.New(errors.CodeMessageTooLarge).
			WithDetailf("Message is %d bytes, the limit is %d.", len(data), limits.MaxMessageSize)
	}

	var ev LayoutEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.FromError(err, errors.CodeInvalidMessage)
	}
	if ev.Type != TypeLayoutEvent {
		return nil, errors.New(errors.CodeInvalidMessage).
			WithDetailf("Unexpected message type %q.", ev.Type)
	}
	if ev.Target == "" {
		return nil, errors.New(errors.CodeInvalidMessage).WithDetail("Event has no target.")
	}
	if len(ev.Data) > 0 {
		if err := checkDepth(ev.Data, limits.MaxDataDepth); err != nil {
			return nil, err
		}
	}
	return &ev, nil
}

// EncodeError marshals an error reply. Errors that are not coded are reported
// as invalid messages.
func EncodeError(err error) ([]byte, error) {
	ve := errors.FromError(err, errors.CodeInvalidMessage)
	return json.Marshal(ErrorMessage{
		Type:    TypeError,
		Code:    ve.Code,
		Message: ve.Error(),
	})
}

// checkDepth walks the tokens of a JSON value and fails if arrays and objects
// nest deeper than max.
func checkDepth(data []byte, max int) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.FromError(err, errors.CodeInvalidMessage)
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			depth++
			if depth > max {
				return errors.New(errors.CodeInvalidMessage).
					WithDetailf("Event data nests deeper than %d levels.", max)
			}
		case '}', ']':
			depth--
		}
	}
}
