package protocol

const (
	// DefaultMaxMessageSize is the default limit on an inbound message (64KB).
	DefaultMaxMessageSize = 64 * 1024

	// HardMaxMessageSize is the ceiling a configured limit is clamped to (4MB).
	HardMaxMessageSize = 4 * 1024 * 1024

	// DefaultMaxDataDepth limits the nesting of event payloads.
	DefaultMaxDataDepth = 64
)

// Limits bounds what DecodeEvent accepts.
type Limits struct {
	// MaxMessageSize is the maximum message length in bytes.
	MaxMessageSize int

	// MaxDataDepth is the maximum nesting depth of the event payload.
	MaxDataDepth int
}

// DefaultLimits returns the default decoding limits.
func DefaultLimits() Limits {
	return Limits{
		MaxMessageSize: DefaultMaxMessageSize,
		MaxDataDepth:   DefaultMaxDataDepth,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxMessageSize <= 0 {
		l.MaxMessageSize = DefaultMaxMessageSize
	}
	if l.MaxMessageSize > HardMaxMessageSize {
		l.MaxMessageSize = HardMaxMessageSize
	}
	if l.MaxDataDepth <= 0 {
		l.MaxDataDepth = DefaultMaxDataDepth
	}
	return l
}
