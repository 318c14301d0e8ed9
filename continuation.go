package http2

const FrameContinuation FrameType = 0x9

var (
	_ Frame            = &Continuation{}
	_ FrameWithHeaders = &Continuation{}
)

// Continuation carries the overflow of a HEADERS or PUSH_PROMISE block that
// didn't fit in a single frame. A chain of CONTINUATION frames on the same
// stream must appear back to back with nothing interleaved, ending with the
// one that sets EndHeaders.
//
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	headerBlock []byte
}

func (c *Continuation) Type() FrameType {
	return FrameContinuation
}

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.headerBlock = c.headerBlock[:0]
}

func (c *Continuation) CopyTo(cc *Continuation) {
	cc.endHeaders = c.endHeaders
	cc.headerBlock = append(cc.headerBlock[:0], c.headerBlock...)
}

// Headers returns the raw HPACK bytes carried by this frame.
func (c *Continuation) Headers() []byte {
	return c.headerBlock
}

func (c *Continuation) SetEndHeaders(value bool) {
	c.endHeaders = value
}

func (c *Continuation) EndHeaders() bool {
	return c.endHeaders
}

func (c *Continuation) SetHeader(b []byte) {
	c.headerBlock = append(c.headerBlock[:0], b...)
}

// AppendHeader appends b to the accumulated header block.
func (c *Continuation) AppendHeader(b []byte) {
	c.headerBlock = append(c.headerBlock, b...)
}

// Write appends b to the header block; it exists so a Continuation can be
// used as an io.Writer target while assembling a block across frames.
func (c *Continuation) Write(b []byte) (int, error) {
	n := len(b)
	c.AppendHeader(b)
	return n, nil
}

func (c *Continuation) Deserialize(fr *FrameHeader) error {
	c.endHeaders = fr.Flags().Has(FlagEndHeaders)
	c.SetHeader(fr.payload)

	return nil
}

func (c *Continuation) Serialize(fr *FrameHeader) {
	if c.endHeaders {
		fr.SetFlags(
			fr.Flags().Add(FlagEndHeaders))
	}

	fr.setPayload(c.headerBlock)
}
