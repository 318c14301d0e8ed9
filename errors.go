package http2

import (
	"errors"
	"fmt"
)

// ErrorCode is one of the error codes defined by RFC 7540 §7, carried in
// RST_STREAM and GOAWAY frames.
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	CancelError          ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectionError      ErrorCode = 0xa
	EnhanceYourCalm      ErrorCode = 0xb
	InadequateSecurity   ErrorCode = 0xc
	HTTP11Required       ErrorCode = 0xd
)

func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERROR"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case SettingsTimeoutError:
		return "SETTINGS_TIMEOUT"
	case StreamClosedError:
		return "STREAM_CLOSED"
	case FrameSizeError:
		return "FRAME_SIZE_ERROR"
	case RefusedStreamError:
		return "REFUSED_STREAM"
	case CancelError:
		return "CANCEL"
	case CompressionError:
		return "COMPRESSION_ERROR"
	case ConnectionError:
		return "CONNECT_ERROR"
	case EnhanceYourCalm:
		return "ENHANCE_YOUR_CALM"
	case InadequateSecurity:
		return "INADEQUATE_SECURITY"
	case HTTP11Required:
		return "HTTP_1_1_REQUIRED"
	}

	return fmt.Sprintf("UNKNOWN_ERROR(%d)", uint32(e))
}

// Error is a protocol error that terminates either a single stream
// (RST_STREAM) or the whole connection (GOAWAY), depending on frameType.
type Error struct {
	frameType FrameType
	code      ErrorCode
	msg       string
}

// NewError builds a generic protocol Error, not yet tied to a frame type.
func NewError(code ErrorCode, msg string) error {
	return Error{code: code, msg: msg}
}

// NewGoAwayError builds an Error that terminates the connection with a
// GOAWAY frame carrying code.
func NewGoAwayError(code ErrorCode, msg string) error {
	return Error{frameType: FrameGoAway, code: code, msg: msg}
}

// NewResetStreamError builds an Error that terminates only the offending
// stream with a RST_STREAM frame carrying code.
func NewResetStreamError(code ErrorCode, msg string) error {
	return Error{frameType: FrameResetStream, code: code, msg: msg}
}

func (e Error) Error() string {
	if e.msg == "" {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// Code returns the error code to be carried by the GOAWAY/RST_STREAM frame.
func (e Error) Code() ErrorCode {
	return e.code
}

var (
	// ErrUnknownFrameType is returned when a frame header declares a type
	// byte outside the range this package understands.
	ErrUnknownFrameType = errors.New("http2: unknown frame type")
	// ErrMissingBytes is returned when a frame's payload is shorter than
	// its type requires.
	ErrMissingBytes = errors.New("http2: frame is missing bytes")
	// ErrZeroPayload is returned when a frame that must carry a payload
	// arrives empty.
	ErrZeroPayload = errors.New("http2: frame payload is empty")
	// ErrBadPreface is returned when the client connection preface doesn't
	// match the expected magic string.
	ErrBadPreface = errors.New("http2: bad connection preface")
	// ErrFrameMismatch is returned when a frame is asked to decode into a
	// type different from the one it declares.
	ErrFrameMismatch = errors.New("http2: frame type mismatch")
	// ErrNilWriter is returned when a nil writer is passed where one is
	// required.
	ErrNilWriter = errors.New("http2: writer cannot be nil")
	// ErrNilReader is returned when a nil reader is passed where one is
	// required.
	ErrNilReader = errors.New("http2: reader cannot be nil")
	// ErrUnknown wraps errors this package cannot otherwise classify.
	ErrUnknown = errors.New("http2: unknown error")
	// ErrBitOverflow is returned when a varint-encoded value doesn't fit
	// in the destination integer type.
	ErrBitOverflow = errors.New("http2: bit overflow")
	// ErrPayloadExceeds is returned when a frame's payload is larger than
	// the negotiated maximum frame size.
	ErrPayloadExceeds = errors.New("http2: frame payload exceeds negotiated maximum size")
	// ErrCompression is returned when the HPACK decoder fails to parse a
	// header block.
	ErrCompression = errors.New("http2: header compression error")
)
