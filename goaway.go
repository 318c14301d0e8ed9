package http2

import (
	"fmt"

	"github.com/halvard/h2core/http2utils"
)

const FrameGoAway FrameType = 0x7

var _ Frame = &GoAway{}

// GoAway tells the peer to stop opening new streams above lastStream,
// giving a reason code and optional debug data.
//
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	lastStream U31
	code       ErrorCode
	debugData  []byte
}

func (ga *GoAway) Error() string {
	return fmt.Sprintf("stream=%d, code=%s, data=%s", ga.lastStream.Uint32(), ga.code, ga.debugData)
}

func (ga *GoAway) Type() FrameType {
	return FrameGoAway
}

func (ga *GoAway) Reset() {
	ga.lastStream = U31(0)
	ga.code = 0
	ga.debugData = ga.debugData[:0]
}

func (ga *GoAway) CopyTo(other *GoAway) {
	other.lastStream = ga.lastStream
	other.code = ga.code
	other.debugData = append(other.debugData[:0], ga.debugData...)
}

func (ga *GoAway) Copy() *GoAway {
	other := new(GoAway)
	other.lastStream = ga.lastStream
	other.code = ga.code
	other.debugData = append(other.debugData[:0], ga.debugData...)
	return other
}

func (ga *GoAway) Code() ErrorCode {
	return ga.code
}

func (ga *GoAway) SetCode(code ErrorCode) {
	ga.code = code
}

// Stream returns the highest-numbered stream id the sender processed.
func (ga *GoAway) Stream() uint32 {
	return ga.lastStream.Uint32()
}

func (ga *GoAway) SetStream(stream uint32) {
	ga.lastStream = MaskU31(stream)
}

func (ga *GoAway) Data() []byte {
	return ga.debugData
}

func (ga *GoAway) SetData(b []byte) {
	ga.debugData = append(ga.debugData[:0], b...)
}

func (ga *GoAway) Deserialize(fr *FrameHeader) (err error) {
	if len(fr.payload) < 8 { // 8 is the min number of bytes
		err = ErrMissingBytes
	} else {
		ga.lastStream = MaskU31(http2utils.BytesToUint32(fr.payload))
		ga.code = ErrorCode(http2utils.BytesToUint32(fr.payload[4:]))

		if len(fr.payload[8:]) != 0 {
			ga.debugData = append(ga.debugData[:0], fr.payload[8:]...)
		}
	}

	return
}

func (ga *GoAway) Serialize(fr *FrameHeader) {
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], ga.lastStream.Uint32())
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:4], uint32(ga.code))

	fr.payload = append(fr.payload, ga.debugData...)
}
