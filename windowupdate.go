package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FrameWindowUpdate FrameType = 0x8

var _ Frame = &WindowUpdate{}

// WindowUpdate carries a connection- or stream-level flow-control window
// increment. A stream id of 0 on the enclosing FrameHeader means the
// increment applies to the connection window rather than a single stream.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment U31
}

func (wu *WindowUpdate) Type() FrameType {
	return FrameWindowUpdate
}

func (wu *WindowUpdate) Reset() {
	wu.increment = U31(0)
}

func (wu *WindowUpdate) CopyTo(w *WindowUpdate) {
	w.increment = wu.increment
}

// Increment returns the window-size increment carried by this frame.
func (wu *WindowUpdate) Increment() uint32 {
	return wu.increment.Uint32()
}

// SetIncrement sets the increment, masking the reserved bit.
func (wu *WindowUpdate) SetIncrement(increment uint32) {
	wu.increment = MaskU31(increment)
}

func (wu *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 4 {
		wu.increment = U31(0)
		return ErrMissingBytes
	}

	wu.increment = MaskU31(http2utils.BytesToUint32(fr.payload))

	return nil
}

func (wu *WindowUpdate) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], wu.increment.Uint32())
}
