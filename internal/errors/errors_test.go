package errors

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "reserved parameter",
			code:    CodeReservedParameter,
			wantMsg: "Component declares reserved parameter \"key\"",
			wantCat: CategoryRuntime,
		},
		{
			name:    "hook mismatch",
			code:    CodeHookMismatch,
			wantMsg: "Hook order changed between renders",
			wantCat: CategoryRuntime,
		},
		{
			name:    "protocol error",
			code:    CodeInvalidMessage,
			wantMsg: "Invalid message",
			wantCat: CategoryProtocol,
		},
		{
			name:    "unknown error code",
			code:    "L999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestVangoError_Error(t *testing.T) {
	err := New(CodeNoActiveRender)
	want := "L003: Hook called outside component render"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = New(CodeRenderFailed).WithComponent("Counter").Wrap(stderrors.New("boom"))
	want = "L005: Component render failed (component Counter): boom"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &VangoError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestVangoError_IsMatchesCode(t *testing.T) {
	err := New(CodeHookMismatch).WithDetail("slot 2: expected State, got Memo")
	wrapped := New(CodeRenderFailed).Wrap(err)

	if !stderrors.Is(err, New(CodeHookMismatch)) {
		t.Error("errors.Is should match on code")
	}
	if !stderrors.Is(wrapped, New(CodeHookMismatch)) {
		t.Error("errors.Is should see through Wrap")
	}
	if stderrors.Is(err, New(CodeNoActiveRender)) {
		t.Error("errors.Is should not match a different code")
	}
	if stderrors.Is(err, &VangoError{Message: "no code"}) {
		t.Error("errors.Is should not match a code-less target")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeRenderFailed) != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	ve := New(CodeReentrantRender)
	if FromError(ve, CodeRenderFailed) != ve {
		t.Error("FromError should return VangoError as-is")
	}

	std := stderrors.New("plain")
	result := FromError(std, CodeRenderFailed)
	if result.Wrapped != std {
		t.Error("Standard error should be wrapped")
	}
}

func TestFromPanic(t *testing.T) {
	ve := New(CodeHookMismatch)
	if FromPanic(ve, CodeRenderFailed) != ve {
		t.Error("VangoError panic values should be returned as-is")
	}

	got := FromPanic("kaboom", CodeRenderFailed)
	if got.Code != CodeRenderFailed {
		t.Errorf("Code = %q, want %q", got.Code, CodeRenderFailed)
	}
	if got.Wrapped == nil || got.Wrapped.Error() != "kaboom" {
		t.Errorf("Wrapped = %v, want kaboom", got.Wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeHookMismatch).
		WithComponent("TodoList").
		WithPath("/0/1").
		WithSuggestion("Move the hook call out of the if statement")

	out := err.Format()
	for _, want := range []string{"ERROR L004", "TodoList", "at /0/1", "Hint: Move the hook"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if got := err.FormatCompact(); got != "/0/1: L004: Hook order changed between renders (component TodoList)" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeInvalidMessage).Wrap(stderrors.New("unexpected EOF"))

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON() produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != CodeInvalidMessage {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["cause"] != "unexpected EOF" {
		t.Errorf("cause = %v", decoded["cause"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	want := []string{"one two", "three", "four five"}
	if len(lines) != len(want) {
		t.Fatalf("wrapText() = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
