package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FrameSettings FrameType = 0x4

var _ Frame = &Settings{}

const (
	defaultHeaderTableSize   uint32 = 4096
	defaultConcurrentStreams uint32 = 100
	defaultWindowSize        uint32 = 1<<16 - 1
	defaultMaxFrameSize      uint32 = 1 << 14

	maxFrameSize = 1<<24 - 1

	// setting identifiers, https://httpwg.org/specs/rfc7540.html#SettingValues
	settingHeaderTableSize      uint16 = 0x1
	settingEnablePush           uint16 = 0x2
	settingMaxConcurrentStreams uint16 = 0x3
	settingInitialWindowSize    uint16 = 0x4
	settingMaxFrameSize         uint16 = 0x5
	settingMaxHeaderListSize    uint16 = 0x6
)

// Settings negotiates per-connection parameters between endpoints.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack bool

	headerTableSize uint32
	enablePush      bool
	maxStreams      uint32
	windowSize      U31
	frameSize       uint32
	headerListSize  uint32
}

func (st *Settings) Type() FrameType {
	return FrameSettings
}

// Reset resets st to the RFC 7540 §6.5.2 defaults, except that
// MAX_CONCURRENT_STREAMS is set to defaultConcurrentStreams (100) rather
// than left unlimited.
func (st *Settings) Reset() {
	st.ack = false
	st.headerTableSize = defaultHeaderTableSize
	st.enablePush = true
	st.maxStreams = defaultConcurrentStreams
	st.windowSize = SaturatingU31(defaultWindowSize)
	st.frameSize = defaultMaxFrameSize
	st.headerListSize = 0
}

// CopyTo copies st fields into s2.
func (st *Settings) CopyTo(s2 *Settings) {
	s2.ack = st.ack
	s2.headerTableSize = st.headerTableSize
	s2.enablePush = st.enablePush
	s2.maxStreams = st.maxStreams
	s2.windowSize = st.windowSize
	s2.frameSize = st.frameSize
	s2.headerListSize = st.headerListSize
}

func (st *Settings) IsAck() bool {
	return st.ack
}

func (st *Settings) SetAck(ack bool) {
	st.ack = ack
}

func (st *Settings) HeaderTableSize() uint32 {
	return st.headerTableSize
}

func (st *Settings) SetHeaderTableSize(n uint32) {
	st.headerTableSize = n
}

func (st *Settings) Push() bool {
	return st.enablePush
}

func (st *Settings) SetPush(enable bool) {
	st.enablePush = enable
}

func (st *Settings) MaxConcurrentStreams() uint32 {
	return st.maxStreams
}

func (st *Settings) SetMaxConcurrentStreams(n uint32) {
	st.maxStreams = n
}

// MaxWindowSize returns the initial flow-control window advertised for new
// streams.
func (st *Settings) MaxWindowSize() uint32 {
	return st.windowSize.Uint32()
}

// SetMaxWindowSize sets the initial window size, saturating at 2^31-1
// rather than wrapping if the caller passes an out-of-range value.
func (st *Settings) SetMaxWindowSize(n uint32) {
	st.windowSize = SaturatingU31(n)
}

func (st *Settings) MaxFrameSize() uint32 {
	return st.frameSize
}

func (st *Settings) SetMaxFrameSize(n uint32) {
	if n > maxFrameSize {
		n = maxFrameSize
	}
	st.frameSize = n
}

func (st *Settings) MaxHeaderListSize() uint32 {
	return st.headerListSize
}

func (st *Settings) SetMaxHeaderListSize(n uint32) {
	st.headerListSize = n
}

func (st *Settings) Deserialize(fr *FrameHeader) error {
	if fr.Flags().Has(FlagAck) {
		st.ack = true
		return nil
	}

	payload := fr.payload
	if len(payload)%6 != 0 {
		return ErrMissingBytes
	}

	for i := 0; i+6 <= len(payload); i += 6 {
		id := uint16(payload[i])<<8 | uint16(payload[i+1])
		value := http2utils.BytesToUint32(payload[i+2 : i+6])

		switch id {
		case settingHeaderTableSize:
			st.headerTableSize = value
		case settingEnablePush:
			st.enablePush = value != 0
		case settingMaxConcurrentStreams:
			st.maxStreams = value
		case settingInitialWindowSize:
			st.windowSize = SaturatingU31(value)
		case settingMaxFrameSize:
			st.frameSize = value
		case settingMaxHeaderListSize:
			st.headerListSize = value
		}
	}

	return nil
}

func (st *Settings) Serialize(fr *FrameHeader) {
	fr.payload = fr.payload[:0]

	if st.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		return
	}

	fr.payload = appendSetting(fr.payload, settingHeaderTableSize, st.headerTableSize)

	push := uint32(0)
	if st.enablePush {
		push = 1
	}
	fr.payload = appendSetting(fr.payload, settingEnablePush, push)
	fr.payload = appendSetting(fr.payload, settingMaxConcurrentStreams, st.maxStreams)
	fr.payload = appendSetting(fr.payload, settingInitialWindowSize, st.windowSize.Uint32())
	fr.payload = appendSetting(fr.payload, settingMaxFrameSize, st.frameSize)

	if st.headerListSize != 0 {
		fr.payload = appendSetting(fr.payload, settingMaxHeaderListSize, st.headerListSize)
	}
}

func appendSetting(dst []byte, id uint16, value uint32) []byte {
	dst = append(dst, byte(id>>8), byte(id))
	return http2utils.AppendUint32Bytes(dst, value)
}
