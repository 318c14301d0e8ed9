package http2

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultPingInterval is used when ConnOpts.PingInterval is zero.
const DefaultPingInterval = 15 * time.Second

func defaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}
}

// ConnOpts defines the connection options.
type ConnOpts struct {
	// PingInterval defines the interval in which the client will ping the server.
	//
	// An interval of 0 will make the library to use DefaultPingInterval. Because ping intervals can't be disabled
	PingInterval time.Duration
	// DisablePingChecking disables the ErrTimeout disconnect that follows 3
	// unacknowledged pings. Pings are still sent every PingInterval.
	DisablePingChecking bool
	// OnDisconnect is a callback that fires when the Conn disconnects.
	OnDisconnect func(c *Conn)
}

// Handshake performs an HTTP/2 handshake. That means, it will send
// the preface if `preface` is true, send a settings frame and a
// window update frame (for the connection's window).
func Handshake(preface bool, bw *bufio.Writer, st *Settings, maxWin int32) error {
	if preface {
		err := WritePreface(bw)
		if err != nil {
			return err
		}
	}

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	// write the settings
	st2 := &Settings{}
	st.CopyTo(st2)

	fr.SetBody(st2)

	_, err := fr.WriteTo(bw)
	if err == nil {
		// then send a window update
		fr = AcquireFrameHeader()
		wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
		wu.SetIncrement(uint32(maxWin))

		fr.SetBody(wu)

		_, err = fr.WriteTo(bw)
		if err == nil {
			err = bw.Flush()
		}
	}

	return err
}

// clientStream is the client-side counterpart of Stream: the per-request
// bookkeeping needed to flow-control a request body write and to route an
// inbound response frame back to its caller. sending is only true while the
// request actually has a body subject to flow control, so a connection-wide
// SETTINGS_INITIAL_WINDOW_SIZE change doesn't reopen a window for a request
// whose HEADERS already carried END_STREAM.
type clientStream struct {
	ctx     *Ctx
	sending bool
	window  Window

	// pending holds request-body bytes withheld because a send window ran
	// dry; pendingEndStream records whether the deferred write should carry
	// END_STREAM once fully flushed.
	pending          []byte
	pendingEndStream bool
}

// Conn represents a raw HTTP/2 connection over TLS + TCP.
type Conn struct {
	c net.Conn

	br *bufio.Reader
	bw *bufio.Writer

	enc *HPACK
	dec *HPACK

	nextID uint32

	// connSendWindow is our send budget against the server's connection-level
	// receive window. It is only moved by WINDOW_UPDATE frames carrying
	// stream id 0 and by the DATA bytes we write.
	connSendWindow Window

	// initialStreamWindow is the send window assigned to every new request
	// stream, taken from the server's SETTINGS_INITIAL_WINDOW_SIZE and
	// applied retroactively to every stream still sending a body when it
	// changes. https://tools.ietf.org/html/rfc7540#section-6.9.2
	initialStreamWindow int32

	// maxWindow/currentWindow track our own receive window: how much DATA
	// we're still willing to accept from the server before we must send a
	// connection-level WINDOW_UPDATE back.
	maxWindow     int32
	currentWindow int32

	openStreams int32

	current Settings
	serverS Settings

	reqQueued sync.Map

	in        chan *Ctx
	out       chan *FrameHeader
	resume    chan uint32
	resumeAll chan struct{}

	pingInterval time.Duration

	unacks      int
	disableAcks bool

	lastErr      error
	onDisconnect func(*Conn)

	closed uint64
}

// NewConn returns a new HTTP/2 connection.
// To start using the connection you need to call Handshake.
func NewConn(c net.Conn, opts ConnOpts) *Conn {
	nc := &Conn{
		c:                   c,
		br:                  bufio.NewReaderSize(c, 4096),
		bw:                  bufio.NewWriterSize(c, maxFrameSize),
		enc:                 AcquireHPACK(),
		dec:                 AcquireHPACK(),
		nextID:              1,
		connSendWindow:      NewWindow(int32(defaultWindowSize)),
		initialStreamWindow: int32(defaultWindowSize),
		maxWindow:           1 << 20,
		currentWindow:       1 << 20,
		in:                  make(chan *Ctx, 128),
		out:                 make(chan *FrameHeader, 128),
		resume:              make(chan uint32, 128),
		resumeAll:           make(chan struct{}, 1),
		pingInterval:        opts.PingInterval,
		disableAcks:         opts.DisablePingChecking,
		onDisconnect:        opts.OnDisconnect,
	}

	nc.current.SetMaxWindowSize(1 << 20)
	nc.current.SetPush(false)

	return nc
}

// Dialer allows to create HTTP/2 connections by specifying an address and tls configuration.
type Dialer struct {
	// Addr is the server's address in the form: `host:port`.
	Addr string

	// TLSConfig is the tls configuration.
	//
	// If TLSConfig is nil, a default one will be defined on the Dial call.
	TLSConfig *tls.Config

	// PingInterval defines the interval in which the client will ping the server.
	//
	// An interval of 0 will make the library to use DefaultPingInterval. Because ping intervals can't be disabled.
	PingInterval time.Duration
}

// negotiatesH2 reports whether cfg already advertises "h2" over ALPN.
func negotiatesH2(cfg *tls.Config) bool {
	if cfg == nil {
		return false
	}

	for _, proto := range cfg.NextProtos {
		if proto == "h2" {
			return true
		}
	}

	return false
}

func (d *Dialer) tryDial() (net.Conn, error) {
	if !negotiatesH2(d.TLSConfig) {
		configureDialer(d)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", d.Addr)
	if err != nil {
		return nil, err
	}

	c, err := net.DialTCP("tcp", nil, tcpAddr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(c, d.TLSConfig)

	if err := tlsConn.Handshake(); err != nil {
		_ = c.Close()
		return nil, err
	}

	if tlsConn.ConnectionState().NegotiatedProtocol != "h2" {
		_ = c.Close()
		return nil, ErrServerSupport
	}

	return tlsConn, nil
}

// Dial creates an HTTP/2 connection or returns an error.
//
// An expected error is ErrServerSupport.
func (d *Dialer) Dial(opts ConnOpts) (*Conn, error) {
	c, err := d.tryDial()
	if err != nil {
		return nil, err
	}

	if opts.PingInterval <= 0 {
		opts.PingInterval = d.PingInterval
	}

	nc := NewConn(c, opts)

	err = nc.Handshake()
	return nc, err
}

// SetOnDisconnect sets the callback that will fire when the HTTP/2 connection is closed.
func (c *Conn) SetOnDisconnect(cb func(*Conn)) {
	c.onDisconnect = cb
}

// LastErr returns the last registered error in case the connection was closed by the server.
func (c *Conn) LastErr() error {
	return c.lastErr
}

// Handshake will perform the necessary handshake to establish the connection
// with the server. If an error is returned you can assume the TCP connection has been closed.
func (c *Conn) Handshake() error {
	var err error

	if err = Handshake(true, c.bw, &c.current, c.maxWindow-65535); err != nil {
		_ = c.c.Close()
		return err
	}

	var fr *FrameHeader

	if fr, err = ReadFrameFrom(c.br); err == nil && fr.Type() != FrameSettings {
		_ = c.c.Close()
		return fmt.Errorf("unexpected frame, expected settings, got %s", fr.Type())
	} else if err == nil {
		st := fr.Body().(*Settings)
		if !st.IsAck() {
			st.CopyTo(&c.serverS)

			atomic.StoreInt32(&c.initialStreamWindow, int32(c.serverS.MaxWindowSize()))

			if st.HeaderTableSize() <= defaultHeaderTableSize {
				c.enc.SetMaxTableSize(int(st.HeaderTableSize()))
			}

			// reply back
			fr = AcquireFrameHeader()

			stRes := AcquireFrame(FrameSettings).(*Settings)
			stRes.SetAck(true)

			fr.SetBody(stRes)

			if _, err = fr.WriteTo(c.bw); err == nil {
				err = c.bw.Flush()
			}

			ReleaseFrameHeader(fr)
		}
	}

	if err != nil {
		_ = c.Close()
	} else {
		ReleaseFrameHeader(fr)

		go c.writeLoop()
		go c.readLoop()
	}

	return err
}

// CanOpenStream returns whether the client will be able to open a new stream or not.
func (c *Conn) CanOpenStream() bool {
	return atomic.LoadInt32(&c.openStreams) < int32(c.serverS.maxStreams)
}

// Closed indicates whether the connection is closed or not.
func (c *Conn) Closed() bool {
	return atomic.LoadUint64(&c.closed) == 1
}

// Close closes the connection gracefully, sending a GoAway message
// and then closing the underlying TCP connection.
func (c *Conn) Close() error {
	if !atomic.CompareAndSwapUint64(&c.closed, 0, 1) {
		return io.EOF
	}

	close(c.in)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(0)
	ga.SetCode(NoError)

	fr.SetBody(ga)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}

	_ = c.c.Close()

	if c.onDisconnect != nil {
		c.onDisconnect(c)
	}

	return err
}

// Write queues the request to be sent to the server.
//
// Check if `c` has been previously closed before accessing this function.
func (c *Conn) Write(r *Ctx) {
	c.in <- r
}

// do adapts Conn to fasthttp.HostClient's Transport signature, letting a
// fasthttp.HostClient dial out over HTTP/2 via ConfigureClient.
func (c *Conn) do(req *fasthttp.Request, res *fasthttp.Response) error {
	ctx := AcquireCtx(req, res)

	c.Write(ctx)

	return <-ctx.Err
}

type WriteError struct {
	err error
}

func (we WriteError) Error() string {
	return fmt.Sprintf("writing error: %s", we.err)
}

func (we WriteError) Unwrap() error {
	return we.err
}

func (we WriteError) Is(target error) bool {
	return errors.Is(we.err, target)
}

func (we WriteError) As(target interface{}) bool {
	return errors.As(we.err, target)
}

func (c *Conn) writeLoop() {
	defer func() { _ = c.Close() }()

	if c.pingInterval <= 0 {
		c.pingInterval = DefaultPingInterval
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	var lastErr error

loop:
	for {
		select {
		case r, ok := <-c.in: // sending requests
			if !ok {
				break loop
			}

			uid, cs, err := c.writeRequest(r)
			if err != nil {
				r.Err <- err

				if errors.Is(err, ErrNotAvailableStreams) {
					continue
				}

				lastErr = WriteError{err}

				break loop
			}

			c.reqQueued.Store(uid, cs)
		case fr := <-c.out: // generic output
			if _, err := fr.WriteTo(c.bw); err == nil {
				if err = c.bw.Flush(); err != nil {
					lastErr = WriteError{err}
					break loop
				}
			} else {
				lastErr = WriteError{err}
				break loop
			}

			ReleaseFrameHeader(fr)
		case id := <-c.resume: // a stream's window opened back up
			c.flushPendingStream(id)
		case <-c.resumeAll: // the connection window opened back up
			c.flushAllPending()
		case <-ticker.C: // ping
			if err := c.writePing(); err != nil {
				lastErr = WriteError{err}
				break loop
			}
		}

		if !c.disableAcks && c.unacks >= 3 {
			lastErr = ErrTimeout
			break loop
		}
	}

	if lastErr == nil {
		lastErr = io.EOF
	}

	// send eofs to pending requests
	c.reqQueued.Range(func(_, v interface{}) bool {
		cs := v.(*clientStream)
		cs.ctx.Err <- lastErr
		return true
	})
}

func (c *Conn) finish(cs *clientStream, stream uint32, err error) {
	atomic.AddInt32(&c.openStreams, -1)

	cs.ctx.Err <- err

	c.reqQueued.Delete(stream)

	close(cs.ctx.Err)
}

func (c *Conn) readLoop() {
	defer func() { _ = c.Close() }()

	for {
		fr, err := c.readNext()
		if err != nil {
			c.lastErr = err
			break
		}

		if v, ok := c.reqQueued.Load(fr.Stream()); ok {
			cs := v.(*clientStream)

			err := c.readStream(fr, cs)
			if err == nil {
				if fr.Flags().Has(FlagEndStream) {
					c.finish(cs, fr.Stream(), nil)
				}
			} else {
				c.finish(cs, fr.Stream(), err)

				fmt.Fprintf(os.Stderr, "%s. payload=%v\n", err, fr.payload)

				var h2Err Error
				if errors.As(err, &h2Err) && h2Err.Code() == FlowControlError {
					break
				}
			}
		}
		// frames for a stream id we have no record of are stale (the
		// response already finished and was delivered) and are dropped.

		ReleaseFrameHeader(fr)
	}
}

func (c *Conn) writeRequest(r *Ctx) (uint32, *clientStream, error) {
	req := r.Request

	if !c.CanOpenStream() {
		return 0, nil, ErrNotAvailableStreams
	}

	hasBody := len(req.Body()) != 0

	enc := c.enc

	id := c.nextID
	c.nextID += 2

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(id)

	h := AcquireFrame(FrameHeaders).(*Headers)
	fr.SetBody(h)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	hf.SetBytes(StringAuthority, req.URI().Host())
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringMethod, req.Header.Method())
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringPath, req.URI().RequestURI())
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringScheme, req.URI().Scheme())
	h.AppendHeaderField(enc, hf, true)

	hf.SetBytes(StringUserAgent, req.Header.UserAgent())
	h.AppendHeaderField(enc, hf, true)

	req.Header.VisitAll(func(k, v []byte) {
		if bytes.EqualFold(k, StringUserAgent) {
			return
		}

		hf.SetBytes(ToLower(k), v)
		h.AppendHeaderField(enc, hf, false)
	})

	h.SetPadding(false)
	h.SetEndStream(!hasBody)
	h.SetEndHeaders(true)

	_, err := fr.WriteTo(c.bw)

	cs := &clientStream{ctx: r}

	if err == nil && hasBody {
		// release headers bc it's going to get replaced by the data frame
		ReleaseFrame(h)

		cs.sending = true
		cs.window = NewWindow(atomic.LoadInt32(&c.initialStreamWindow))

		err = c.sendData(id, cs, req.Body(), true)
	}

	if err == nil {
		err = c.bw.Flush()
		if err == nil {
			atomic.AddInt32(&c.openStreams, 1)
		}
	}

	if err != nil {
		c.lastErr = err
	}

	return id, cs, err
}

// sendData writes as much of body as cs's stream window and the
// connection's send window currently allow, splitting on the max frame
// size. Bytes it cannot send because a window is exhausted are copied into
// cs.pending and drained later by flushPendingStream/flushAllPending once a
// WINDOW_UPDATE arrives.
func (c *Conn) sendData(id uint32, cs *clientStream, body []byte, endStream bool) error {
	const maxChunk = 1 << 14 // max frame size 16384

	if len(body) == 0 {
		// a bodyless request still needs a DATA frame to carry END_STREAM
		// if the HEADERS frame didn't already set it.
		if endStream {
			return c.writeEmptyData(id)
		}
		return nil
	}

	sent := 0

	for sent < len(body) {
		avail := minInt(int(cs.window.Load()), int(c.connSendWindow.Load()))
		if avail <= 0 {
			break
		}

		step := maxChunk
		if step > avail {
			step = avail
		}
		if sent+step > len(body) {
			step = len(body) - sent
		}

		chunk := body[sent : sent+step]
		cs.window.Withdraw(int32(step))
		c.connSendWindow.Withdraw(int32(step))

		fr := AcquireFrameHeader()
		fr.SetStream(id)

		data := AcquireFrame(FrameData).(*Data)
		data.SetEndStream(endStream && sent+step == len(body))
		data.SetPadding(false)
		data.SetData(chunk)

		fr.SetBody(data)

		_, err := fr.WriteTo(c.bw)
		ReleaseFrameHeader(fr)
		if err != nil {
			return err
		}

		sent += step
	}

	if sent < len(body) {
		cs.pending = append(cs.pending[:0], body[sent:]...)
		cs.pendingEndStream = endStream
	}

	return nil
}

// writeEmptyData sends a zero-length DATA frame carrying END_STREAM. It
// bypasses flow control entirely: a zero-length DATA frame consumes no
// window per https://tools.ietf.org/html/rfc7540#section-6.9.1.
func (c *Conn) writeEmptyData(id uint32) error {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.SetStream(id)

	data := AcquireFrame(FrameData).(*Data)
	data.SetEndStream(true)
	data.SetPadding(false)
	data.SetData(nil)

	fr.SetBody(data)

	_, err := fr.WriteTo(c.bw)
	return err
}

// flushPendingStream resumes a stream's withheld request-body bytes after
// its own WINDOW_UPDATE arrived. Runs on the writeLoop goroutine so it's
// safe to write c.bw directly.
func (c *Conn) flushPendingStream(id uint32) {
	v, ok := c.reqQueued.Load(id)
	if !ok {
		return
	}

	cs := v.(*clientStream)
	if len(cs.pending) == 0 {
		return
	}

	body := append([]byte(nil), cs.pending...)
	endStream := cs.pendingEndStream
	cs.pending = cs.pending[:0]

	if err := c.sendData(id, cs, body, endStream); err != nil {
		c.lastErr = err
		return
	}

	_ = c.bw.Flush()
}

// flushAllPending resumes every stream holding withheld bytes after a
// connection-level WINDOW_UPDATE arrived.
func (c *Conn) flushAllPending() {
	c.reqQueued.Range(func(k, v interface{}) bool {
		if v.(*clientStream).sending {
			c.flushPendingStream(k.(uint32))
		}
		return true
	})
}

func (c *Conn) readNext() (fr *FrameHeader, err error) {
	for err == nil {
		fr, err = ReadFrameFrom(c.br)
		if err != nil {
			break
		}

		if fr.Stream() != 0 {
			break
		}

		switch fr.Type() {
		case FrameSettings:
			st := fr.Body().(*Settings)
			if !st.IsAck() { // if has ack, just ignore
				c.handleSettings(st)
			}
		case FrameWindowUpdate:
			win := int32(fr.Body().(*WindowUpdate).Increment())

			if depErr := c.connSendWindow.Deposit(win); depErr == nil {
				select {
				case c.resumeAll <- struct{}{}:
				default:
				}
			}
		case FramePing:
			ping := fr.Body().(*Ping)
			if !ping.IsAck() {
				c.handlePing(ping)
			} else {
				c.unacks--
			}
		case FrameGoAway:
			err = fr.Body().(*GoAway)
			_ = c.Close()
		}

		ReleaseFrameHeader(fr)
	}

	return
}

var ErrTimeout = errors.New("server is not replying to pings")

func (c *Conn) writePing() error {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetCurrentTime()

	fr.SetBody(ping)

	_, err := fr.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
		if err == nil {
			c.unacks++
		}
	}

	return err
}

func (c *Conn) handleSettings(st *Settings) {
	st.CopyTo(&c.serverS)

	prevInitial := atomic.LoadInt32(&c.initialStreamWindow)
	newInitial := int32(c.serverS.MaxWindowSize())
	atomic.StoreInt32(&c.initialStreamWindow, newInitial)

	if delta := newInitial - prevInitial; delta != 0 {
		c.reqQueued.Range(func(_, v interface{}) bool {
			cs := v.(*clientStream)
			if cs.sending {
				_ = cs.window.Deposit(delta)
			}
			return true
		})

		if delta > 0 {
			select {
			case c.resumeAll <- struct{}{}:
			default:
			}
		}
	}

	c.enc.SetMaxTableSize(int(st.HeaderTableSize()))

	// reply back
	fr := AcquireFrameHeader()

	stRes := AcquireFrame(FrameSettings).(*Settings)
	stRes.SetAck(true)

	fr.SetBody(stRes)

	c.out <- fr
}

func (c *Conn) handlePing(ping *Ping) {
	// reply back
	fr := AcquireFrameHeader()

	ping.SetAck(true)

	fr.SetBody(ping)

	c.out <- fr
}

func (c *Conn) readStream(fr *FrameHeader, cs *clientStream) (err error) {
	switch fr.Type() {
	case FrameHeaders, FrameContinuation:
		h := fr.Body().(FrameWithHeaders)
		err = c.readHeader(h.Headers(), cs.ctx.Response)
	case FrameData:
		c.currentWindow -= int32(fr.Len())
		currentWin := c.currentWindow

		data := fr.Body().(*Data)
		if data.Len() != 0 {
			cs.ctx.Response.AppendBody(data.Data())

			// let's send the window update
			c.updateWindow(fr.Stream(), fr.Len())
		}

		if currentWin < c.maxWindow/2 {
			nValue := c.maxWindow - currentWin

			c.currentWindow = c.maxWindow

			c.updateWindow(0, int(nValue))
		}
	case FrameWindowUpdate:
		wu := fr.Body().(*WindowUpdate)
		if depErr := cs.window.Deposit(int32(wu.Increment())); depErr != nil {
			return depErr
		}

		if len(cs.pending) > 0 {
			select {
			case c.resume <- fr.Stream():
			default:
			}
		}
	}

	return
}

func (c *Conn) updateWindow(streamID uint32, size int) {
	fr := AcquireFrameHeader()

	fr.SetStream(streamID)

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(uint32(size))

	fr.SetBody(wu)

	c.out <- fr
}

func (c *Conn) readHeader(b []byte, res *fasthttp.Response) error {
	var err error
	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)

	dec := c.dec

	for len(b) > 0 {
		b, err = dec.Next(hf, b)
		if err != nil {
			return err
		}

		if hf.IsPseudo() {
			if hf.KeyBytes()[1] == 's' { // status
				n, err := strconv.ParseInt(hf.Value(), 10, 64)
				if err != nil {
					return err
				}

				res.SetStatusCode(int(n))
				continue
			}
		}

		if bytes.Equal(hf.KeyBytes(), StringContentLength) {
			n, _ := strconv.Atoi(hf.Value())
			res.Header.SetContentLength(n)
		} else {
			res.Header.AddBytesKV(hf.KeyBytes(), hf.ValueBytes())
		}
	}

	return nil
}
