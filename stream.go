package http2

import (
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

// StreamState is the lifecycle state of a single HTTP/2 stream as described
// in https://tools.ietf.org/html/rfc7540#section-5.1
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReserved
	StreamStateOpen
	StreamStateHalfClosed
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "Idle"
	case StreamStateReserved:
		return "Reserved"
	case StreamStateOpen:
		return "Open"
	case StreamStateHalfClosed:
		return "HalfClosed"
	case StreamStateClosed:
		return "Closed"
	}

	return "IDK"
}

var streamPool = sync.Pool{
	New: func() interface{} {
		return &Stream{}
	},
}

// Stream holds everything the server needs to track a single HTTP/2 stream
// across the frames that make it up: the HEADERS/CONTINUATION block being
// assembled, the request it produces, and its flow-control window.
type Stream struct {
	id     U31
	window Window
	state  StreamState

	// origType is the frame type that opened the stream: FrameHeaders for a
	// real request, or the type of another frame (such as FramePriority) for
	// streams the peer only referenced without ever sending headers.
	origType FrameType

	startedAt time.Time

	ctx *fasthttp.RequestCtx

	headersFinished bool
	// headerBlock accumulates raw HPACK bytes across HEADERS + CONTINUATION
	// frames until END_HEADERS.
	headerBlock bytebufferpool.ByteBuffer
	scheme      []byte

	// pending holds response body bytes that couldn't be sent yet because a
	// window was exhausted; pendingEndStream records whether the deferred
	// write should carry END_STREAM once fully flushed.
	pending          []byte
	pendingEndStream bool
}

// NewStream returns a pooled Stream with id and initial flow-control window.
func NewStream(id uint32, window int32) *Stream {
	strm := streamPool.Get().(*Stream)
	strm.id = MaskU31(id)
	strm.window.Set(window)
	strm.state = StreamStateIdle
	strm.origType = 0
	strm.headersFinished = false
	strm.headerBlock.Reset()
	strm.scheme = strm.scheme[:0]
	strm.ctx = nil
	strm.pending = nil
	strm.pendingEndStream = false

	return strm
}

func (s *Stream) ID() uint32 {
	return s.id.Uint32()
}

func (s *Stream) SetID(id uint32) {
	s.id = MaskU31(id)
}

func (s *Stream) State() StreamState {
	return s.state
}

func (s *Stream) SetState(state StreamState) {
	s.state = state
}

func (s *Stream) Window() int64 {
	return s.window.Load()
}

func (s *Stream) SetWindow(win int32) {
	s.window.Set(win)
}

func (s *Stream) SetData(ctx *fasthttp.RequestCtx) {
	s.ctx = ctx
}

func (s *Stream) Data() *fasthttp.RequestCtx {
	return s.ctx
}
