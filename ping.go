package http2

import (
	"encoding/binary"
	"time"
)

const FramePing FrameType = 0x6

var _ Frame = &Ping{}

// Ping is a connection-level keepalive/RTT probe. The 8 opaque payload
// bytes a sender writes must come back unchanged on the ACK.
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

func (ping *Ping) Type() FrameType {
	return FramePing
}

func (ping *Ping) Reset() {
	ping.ack = false
}

func (ping *Ping) CopyTo(p *Ping) {
	p.ack = ping.ack
	p.data = ping.data
}

// Write copies b into the opaque payload; it exists so Ping satisfies
// io.Writer.
func (ping *Ping) Write(b []byte) (n int, err error) {
	copy(ping.data[:], b)
	return
}

func (ping *Ping) SetData(b []byte) {
	copy(ping.data[:], b)
}

func (ping *Ping) Data() []byte {
	return ping.data[:]
}

// IsAck reports whether this Ping is a reply to one we sent.
func (ping *Ping) IsAck() bool {
	return ping.ack
}

func (ping *Ping) SetAck(ack bool) {
	ping.ack = ack
}

// SetCurrentTime stamps the payload with the current time so the reply's
// round-trip latency can be measured once it comes back.
func (ping *Ping) SetCurrentTime() {
	binary.BigEndian.PutUint64(ping.data[:], uint64(time.Now().UnixNano()))
}

// SentAt decodes the timestamp written by SetCurrentTime.
func (ping *Ping) SentAt() time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(ping.data[:])))
}

func (ping *Ping) Deserialize(frh *FrameHeader) error {
	ping.ack = frh.Flags().Has(FlagAck)
	ping.SetData(frh.payload)
	return nil
}

func (ping *Ping) Serialize(fr *FrameHeader) {
	if ping.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}

	fr.setPayload(ping.data[:])
}
