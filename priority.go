package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FramePriority FrameType = 0x2

var _ Frame = &Priority{}

// Priority carries a stream's dependency weighting. This engine parses it
// but never acts on it: streams are scheduled first-come-first-served.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	dependsOn U31
	weight    byte
}

func (pry *Priority) Type() FrameType {
	return FramePriority
}

func (pry *Priority) Reset() {
	pry.dependsOn = U31(0)
	pry.weight = 0
}

func (pry *Priority) CopyTo(p *Priority) {
	p.dependsOn = pry.dependsOn
	p.weight = pry.weight
}

// Stream returns the id of the stream this one depends on.
func (pry *Priority) Stream() uint32 {
	return pry.dependsOn.Uint32()
}

// SetStream sets the dependency stream id, masking the reserved bit.
func (pry *Priority) SetStream(stream uint32) {
	pry.dependsOn = MaskU31(stream)
}

func (pry *Priority) Weight() byte {
	return pry.weight
}

func (pry *Priority) SetWeight(w byte) {
	pry.weight = w
}

func (pry *Priority) Deserialize(fr *FrameHeader) (err error) {
	if len(fr.payload) < 5 {
		return ErrMissingBytes
	}

	pry.dependsOn = MaskU31(http2utils.BytesToUint32(fr.payload))
	pry.weight = fr.payload[4]

	return nil
}

func (pry *Priority) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], pry.dependsOn.Uint32())
	fr.payload = append(fr.payload, pry.weight)
}
