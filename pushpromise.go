package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FramePushPromise FrameType = 0x5

var _ Frame = &PushPromise{}

// PushPromise is parsed for completeness but never acted on: this engine
// never initiates server push. The server's read loop answers a received
// PUSH_PROMISE with a PROTOCOL_ERROR GOAWAY; the client Conn drops it
// without replying.
//
// https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	padded      bool
	endHeaders  bool
	promised    U31
	headerBlock []byte
}

func (pp *PushPromise) Type() FrameType {
	return FramePushPromise
}

func (pp *PushPromise) Reset() {
	pp.padded = false
	pp.endHeaders = false
	pp.promised = U31(0)
	pp.headerBlock = pp.headerBlock[:0]
}

// PromisedStreamID returns the stream id the server promised to push on.
func (pp *PushPromise) PromisedStreamID() uint32 {
	return pp.promised.Uint32()
}

func (pp *PushPromise) SetHeader(h []byte) {
	pp.headerBlock = append(pp.headerBlock[:0], h...)
}

func (pp *PushPromise) Write(b []byte) (int, error) {
	pp.headerBlock = append(pp.headerBlock, b...)
	return len(b), nil
}

func (pp *PushPromise) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return err
		}

		pp.padded = true
	}

	if len(payload) < 4 {
		return ErrMissingBytes
	}

	pp.promised = MaskU31(http2utils.BytesToUint32(payload))
	pp.headerBlock = append(pp.headerBlock[:0], payload[4:]...)
	pp.endHeaders = fr.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], pp.promised.Uint32())
	fr.payload = append(fr.payload, pp.headerBlock...)
}
