package http2

// Pseudo-header names (https://tools.ietf.org/html/rfc7540#section-8.1.2.3)
// and other byte strings reused across the codec to avoid repeated
// allocation.
var (
	StringPath          = []byte(":path")
	StringStatus        = []byte(":status")
	StringAuthority     = []byte(":authority")
	StringScheme        = []byte(":scheme")
	StringMethod        = []byte(":method")
	StringServer        = []byte("server")
	StringContentLength = []byte("content-length")
	StringContentType   = []byte("content-type")
	StringUserAgent     = []byte("user-agent")
	StringGzip          = []byte("gzip")
	StringGET           = []byte("GET")
	StringHEAD          = []byte("HEAD")
	StringPOST          = []byte("POST")
	StringHTTP2         = []byte("HTTP/2")
)

const (
	// H2TLSProto is the string used in ALPN-TLS negotiation.
	H2TLSProto = "h2"
	// H2Clean is the string used in HTTP headers by the client to upgrade the connection.
	H2Clean = "h2c"
)

// ToLower lowercases b in place. HTTP/2 field names must be lowercase
// (https://tools.ietf.org/html/rfc7540#section-8.1.2); this assumes b only
// ever holds ASCII header-name bytes.
func ToLower(b []byte) []byte {
	for i := range b {
		b[i] |= 32
	}

	return b
}
