package http2

import (
	"bufio"
	"net"
	"time"

	"github.com/valyala/fasthttp"
)

// ServerConfig tunes the behavior of a Server beyond what fasthttp.Server
// already configures.
type ServerConfig struct {
	// PingInterval is how often the server pings a connection, whether or
	// not it is idle. Zero uses DefaultPingInterval.
	PingInterval time.Duration
	// MaxRequestTime bounds how long a single stream may stay open before
	// it's reset. Zero disables the bound.
	MaxRequestTime time.Duration
	// MaxIdleTime closes the connection if no stream has been opened for
	// this long. Zero disables the bound.
	MaxIdleTime time.Duration
	// Debug enables verbose per-stream logging through Logger.
	Debug bool
	// Logger receives debug and panic-recovery output. Defaults to the
	// package logger writing to stdout.
	Logger fasthttp.Logger
}

// Server serves HTTP/2 connections on behalf of a fasthttp.Server.
type Server struct {
	s  *fasthttp.Server
	cfg ServerConfig
}

// NewServer wraps s to serve HTTP/2 connections, handed to it already past
// the TLS/ALPN or h2c upgrade decision.
func NewServer(s *fasthttp.Server, cfg ServerConfig) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return &Server{s: s, cfg: cfg}
}

// ServeConn takes over c, reading the client connection preface and then
// serving HTTP/2 frames on it until the connection closes.
func (s *Server) ServeConn(c net.Conn) error {
	defer func() { _ = c.Close() }()

	br := bufio.NewReader(c)
	if err := ReadPreface(br); err != nil {
		return err
	}

	sc := &serverConn{
		c:      c,
		h:      s.s.Handler,
		br:     br,
		bw:     bufio.NewWriterSize(c, 1<<14*10),
		lastID: 0,

		writer: make(chan *FrameHeader, 128),
		reader: make(chan *FrameHeader, 128),

		maxRequestTime: s.cfg.MaxRequestTime,
		pingInterval:   s.cfg.PingInterval,
		maxIdleTime:    s.cfg.MaxIdleTime,

		debug:  s.cfg.Debug,
		logger: s.cfg.Logger,
	}

	sc.enc.SetMaxTableSize(defaultMaxTableSize)
	sc.dec.SetMaxTableSize(defaultMaxTableSize)

	sc.maxWindow = 1 << 22
	sc.currentWindow = sc.maxWindow

	sc.st.Reset()
	sc.st.SetMaxWindowSize(uint32(sc.maxWindow))
	sc.st.SetMaxConcurrentStreams(1024)

	if s.s.ReadTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.s.ReadTimeout)); err != nil {
			return err
		}
	}

	if err := sc.Handshake(); err != nil {
		return err
	}

	return sc.Serve()
}
