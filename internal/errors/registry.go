package errors

// Registered error codes.
const (
	CodeReservedParameter = "L001"
	CodeReentrantRender   = "L002"
	CodeNoActiveRender    = "L003"
	CodeHookMismatch      = "L004"
	CodeRenderFailed      = "L005"
	CodeUnknownTarget     = "L006"
	CodeLayoutClosed      = "L007"
	CodeInvalidMessage    = "L008"
	CodeMessageTooLarge   = "L009"
	CodeInvalidConfig     = "L010"
	CodeTransportClosed   = "L011"
	CodeRenderDepth       = "L012"
	CodeHandlerFailed     = "L013"
	CodeConfigNotFound    = "L014"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (L001-L007, L012-L013)
	// ============================================

	CodeReservedParameter: {
		Category: CategoryRuntime,
		Message:  "Component declares reserved parameter \"key\"",
		Detail:   "The key of a component is consumed by the reconciler and is never passed to the render function. Props must not declare a field named Key or tagged `key`.",
	},
	CodeReentrantRender: {
		Category: CategoryRuntime,
		Message:  "Component is already rendering",
		Detail:   "A component's hook state was pushed while it was still active on the same render chain. A component cannot render itself recursively.",
	},
	CodeNoActiveRender: {
		Category: CategoryRuntime,
		Message:  "Hook called outside component render",
		Detail:   "Hooks must be called from a render function invoked by the layout, with the context it was given. Calling a render function directly, or keeping its context for later use, is not allowed.",
	},
	CodeHookMismatch: {
		Category: CategoryRuntime,
		Message:  "Hook order changed between renders",
		Detail:   "A component must call the same hooks in the same order on every render. Hooks called inside conditions or loops usually cause this.",
	},
	CodeRenderFailed: {
		Category: CategoryRuntime,
		Message:  "Component render failed",
		Detail:   "The render function panicked. The component was replaced by an error placeholder; the rest of the page keeps rendering.",
	},
	CodeUnknownTarget: {
		Category: CategoryRuntime,
		Message:  "Event target not found",
		Detail:   "No handler is registered for the event target. The element was most likely removed by a render the client had not applied yet.",
	},
	CodeLayoutClosed: {
		Category: CategoryRuntime,
		Message:  "Layout is not open",
		Detail:   "Render and Deliver require Open to have been called, and fail after Close.",
	},
	CodeRenderDepth: {
		Category: CategoryRuntime,
		Message:  "Maximum render depth exceeded",
		Detail:   "Components nested deeper than the configured limit. This usually means a component renders itself unconditionally.",
	},
	CodeHandlerFailed: {
		Category: CategoryRuntime,
		Message:  "Event handler failed",
		Detail:   "An event handler panicked or returned an error.",
	},

	// ============================================
	// Protocol Errors (L008-L009, L011)
	// ============================================

	CodeInvalidMessage: {
		Category: CategoryProtocol,
		Message:  "Invalid message",
		Detail:   "The message could not be decoded as a layout event.",
	},
	CodeMessageTooLarge: {
		Category: CategoryProtocol,
		Message:  "Message too large",
		Detail:   "The message exceeds the configured size or nesting limits.",
	},
	CodeTransportClosed: {
		Category: CategoryProtocol,
		Message:  "Transport closed",
		Detail:   "The peer went away. Sessions are not retried by the engine.",
	},

	// ============================================
	// Config Errors (L010, L014)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be parsed or contains invalid values.",
	},
	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "None of vango-live.json, vango-live.yaml or vango-live.yml exists in the directory.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
