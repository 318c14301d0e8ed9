package http2

import (
	"github.com/halvard/h2core/http2utils"
)

const FrameData FrameType = 0x0

var _ Frame = &Data{}

// Data carries a chunk of a stream's request or response body.
//
// Data frames can have the following flags:
// END_STREAM
// PADDED
//
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream  bool
	hasPadding bool
	body       []byte
}

func (data *Data) Type() FrameType {
	return FrameData
}

func (data *Data) Reset() {
	data.endStream = false
	data.hasPadding = false
	data.body = data.body[:0]
}

// CopyTo copies data to d.
func (data *Data) CopyTo(d *Data) {
	d.hasPadding = data.hasPadding
	d.endStream = data.endStream
	d.body = append(d.body[:0], data.body...)
}

func (data *Data) SetEndStream(value bool) {
	data.endStream = value
}

func (data *Data) EndStream() bool {
	return data.endStream
}

// Data returns the chunk's bytes.
func (data *Data) Data() []byte {
	return data.body
}

// SetData replaces the chunk's bytes with b.
func (data *Data) SetData(b []byte) {
	data.body = append(data.body[:0], b...)
}

func (data *Data) Padding() bool {
	return data.hasPadding
}

func (data *Data) SetPadding(value bool) {
	data.hasPadding = value
}

// Append appends b to the chunk.
func (data *Data) Append(b []byte) {
	data.body = append(data.body, b...)
}

func (data *Data) Len() int {
	return len(data.body)
}

// Write appends b to the chunk; it exists so Data satisfies io.Writer.
func (data *Data) Write(b []byte) (int, error) {
	n := len(b)
	data.Append(b)

	return n, nil
}

func (data *Data) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return err
		}
	}

	data.endStream = fr.Flags().Has(FlagEndStream)
	data.body = append(data.body[:0], payload...)

	return nil
}

func (data *Data) Serialize(fr *FrameHeader) {
	if data.endStream {
		fr.SetFlags(
			fr.Flags().Add(FlagEndStream))
	}

	if data.hasPadding {
		fr.SetFlags(
			fr.Flags().Add(FlagPadded))
		data.body = http2utils.AddPadding(data.body)
	}

	fr.setPayload(data.body)
}
