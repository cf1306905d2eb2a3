package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	verrors "github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/vdom"
)

func TestEncodeUpdateFull(t *testing.T) {
	root := vdom.Encode(vdom.Div(vdom.Class("app"), vdom.Text("hi")))
	data, err := EncodeUpdate(NewFullUpdate(1, root))
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"type": "layout-update",
		"seq":  float64(1),
		"root": map[string]any{
			"tagName":    "div",
			"attributes": map[string]any{"class": "app"},
			"children":   []any{"hi"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encoded update mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateRoundTripPatches(t *testing.T) {
	u := NewPatchUpdate(7, []vdom.Patch{
		{Op: vdom.OpReplace, Path: "/children/0", Value: "", Kind: vdom.PatchSetText},
		{Op: vdom.OpMove, From: "/children/2", Path: "/children/0", Kind: vdom.PatchMoveNode},
	})
	data, err := EncodeUpdate(u)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeUpdate(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Seq != 7 || back.IsFull() || len(back.Changes) != 2 {
		t.Fatalf("decoded %+v", back)
	}
	if diff := cmp.Diff(u.Changes, back.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"layout-event","target":"n2:onclick","data":{"x":1}}`), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Target != "n2:onclick" || string(ev.Data) != `{"x":1}` {
		t.Errorf("decoded %+v", ev)
	}
}

func TestDecodeEventErrors(t *testing.T) {
	deep := strings.Repeat(`{"a":`, 10) + "1" + strings.Repeat("}", 10)

	tests := []struct {
		name   string
		input  string
		limits Limits
		code   string
	}{
		{"not json", `{`, Limits{}, verrors.CodeInvalidMessage},
		{"wrong type", `{"type":"layout-update","target":"x"}`, Limits{}, verrors.CodeInvalidMessage},
		{"no target", `{"type":"layout-event"}`, Limits{}, verrors.CodeInvalidMessage},
		{"too large", `{"type":"layout-event","target":"` + strings.Repeat("x", 100) + `"}`, Limits{MaxMessageSize: 64}, verrors.CodeMessageTooLarge},
		{"too deep", `{"type":"layout-event","target":"x","data":` + deep + `}`, Limits{MaxDataDepth: 5}, verrors.CodeInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.input), tt.limits)
			var ve *verrors.VangoError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *VangoError", err)
			}
			if ve.Code != tt.code {
				t.Errorf("code = %s, want %s", ve.Code, tt.code)
			}
		})
	}
}

func TestEncodeError(t *testing.T) {
	data, err := EncodeError(errors.New("bad"))
	if err != nil {
		t.Fatal(err)
	}
	var msg ErrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeError || msg.Code != verrors.CodeInvalidMessage {
		t.Errorf("error message = %+v", msg)
	}
}

func TestNewLayoutEvent(t *testing.T) {
	ev, err := NewLayoutEvent("n1:oninput", map[string]string{"value": "abc"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeEvent(data, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if back.Target != "n1:oninput" || string(back.Data) != `{"value":"abc"}` {
		t.Errorf("round trip = %+v", back)
	}
}
