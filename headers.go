package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FrameHeaders FrameType = 0x1

var (
	_ Frame            = &Headers{}
	_ FrameWithHeaders = &Headers{}
)

type FrameWithHeaders interface {
	Headers() []byte
}

// Headers opens a stream and carries its HPACK-encoded header block, along
// with an optional stream dependency/weight (RFC 7540 priority) and padding.
//
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	hasPadding bool
	dependsOn  U31
	weight     uint8
	endStream  bool
	endHeaders bool
	// headerBlock holds the HPACK bytes for this frame alone; the full
	// block may continue across CONTINUATION frames until EndHeaders.
	headerBlock []byte
}

func (h *Headers) Reset() {
	h.hasPadding = false
	h.dependsOn = U31(0)
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.headerBlock = h.headerBlock[:0]
}

// CopyTo copies h fields to h2.
func (h *Headers) CopyTo(h2 *Headers) {
	h2.hasPadding = h.hasPadding
	h2.dependsOn = h.dependsOn
	h2.weight = h.weight
	h2.endStream = h.endStream
	h2.endHeaders = h.endHeaders
	h2.headerBlock = append(h2.headerBlock[:0], h.headerBlock...)
}

func (h *Headers) Type() FrameType {
	return FrameHeaders
}

// Headers returns the raw HPACK bytes carried by this frame.
func (h *Headers) Headers() []byte {
	return h.headerBlock
}

// SetHeaders overwrites the header block with b.
func (h *Headers) SetHeaders(b []byte) {
	h.headerBlock = append(h.headerBlock[:0], b...)
}

// AppendRawHeaders appends b to the header block.
func (h *Headers) AppendRawHeaders(b []byte) {
	h.headerBlock = append(h.headerBlock, b...)
}

// AppendHeaderField HPACK-encodes hf and appends the result to the header
// block, optionally inserting it into the encoder's dynamic table.
func (h *Headers) AppendHeaderField(hp *HPACK, hf *HeaderField, store bool) {
	h.headerBlock = hp.AppendHeader(h.headerBlock, hf, store)
}

func (h *Headers) EndStream() bool {
	return h.endStream
}

func (h *Headers) SetEndStream(value bool) {
	h.endStream = value
}

func (h *Headers) EndHeaders() bool {
	return h.endHeaders
}

func (h *Headers) SetEndHeaders(value bool) {
	h.endHeaders = value
}

// Stream returns the stream id this frame is prioritized against, or 0 if
// the PRIORITY flag wasn't set.
func (h *Headers) Stream() uint32 {
	return h.dependsOn.Uint32()
}

func (h *Headers) SetStream(stream uint32) {
	h.dependsOn = MaskU31(stream)
}

func (h *Headers) Weight() byte {
	return h.weight
}

func (h *Headers) SetWeight(w byte) {
	h.weight = w
}

func (h *Headers) Padding() bool {
	return h.hasPadding
}

func (h *Headers) SetPadding(value bool) {
	h.hasPadding = value
}

func (h *Headers) Deserialize(frh *FrameHeader) (err error) {
	flags := frh.Flags()
	payload := frh.payload

	if flags.Has(FlagPadded) {
		payload, err = http2utils.CutPadding(payload, len(payload))
		if err != nil {
			return err
		}
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 { // 4 (dependency stream id) + 1 (weight) = 5
			err = ErrMissingBytes
		} else {
			h.dependsOn = MaskU31(http2utils.BytesToUint32(payload))
			h.weight = payload[4]
			payload = payload[5:]
		}
	}

	if err == nil {
		h.endStream = flags.Has(FlagEndStream)
		h.endHeaders = flags.Has(FlagEndHeaders)
		h.headerBlock = append(h.headerBlock, payload...)
	}

	return
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(
			frh.Flags().Add(FlagEndStream))
	}

	if h.endHeaders {
		frh.SetFlags(
			frh.Flags().Add(FlagEndHeaders))
	}

	if h.dependsOn.Uint32() > 0 && h.weight > 0 {
		frh.SetFlags(
			frh.Flags().Add(FlagPriority))

		prio := make([]byte, 5, 5+len(h.headerBlock))
		http2utils.Uint32ToBytes(prio[:4], h.dependsOn.Uint32())
		prio[4] = h.weight
		h.headerBlock = append(prio, h.headerBlock...)
	}

	if h.hasPadding {
		frh.SetFlags(
			frh.Flags().Add(FlagPadded))
		h.headerBlock = http2utils.AddPadding(h.headerBlock)
	}

	frh.payload = append(frh.payload[:0], h.headerBlock...)
}
