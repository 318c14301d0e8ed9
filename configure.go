package http2

import (
	"errors"
	"net"

	"github.com/valyala/fasthttp"
)

// ErrServerSupport indicates the remote end did not negotiate h2 over ALPN.
var ErrServerSupport = errors.New("server doesn't support HTTP/2")

// ErrNotAvailableStreams is returned when the local peer has exhausted the
// concurrent stream budget negotiated by the remote's SETTINGS frame.
var ErrNotAvailableStreams = errors.New("ran out of available streams")

func configureDialer(d *Dialer) {
	if d.TLSConfig == nil {
		d.TLSConfig = defaultTLSConfig()
	}

	tlsConfig := d.TLSConfig

	emptyServerName := len(tlsConfig.ServerName) == 0
	if emptyServerName {
		host, _, err := net.SplitHostPort(d.Addr)
		if err != nil {
			host = d.Addr
		}

		tlsConfig.ServerName = host
	}

	tlsConfig.NextProtos = append(tlsConfig.NextProtos, H2TLSProto)
}

// ConfigureClient wires a fasthttp.HostClient to dial over HTTP/2 instead of
// HTTP/1.1, reusing a single multiplexed Conn behind c.Transport.
func ConfigureClient(c *fasthttp.HostClient, opts ConnOpts) error {
	d := &Dialer{
		Addr:      c.Addr,
		TLSConfig: c.TLSConfig,
	}

	nc, err := d.Dial(opts)
	if err != nil {
		return err
	}

	c.IsTLS = true
	c.TLSConfig = d.TLSConfig
	c.Transport = nc.do

	return nil
}
