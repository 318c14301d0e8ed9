package http2

import (
	"github.com/valyala/fasthttp"
)

// Ctx carries a single client-issued request through Conn's write/read
// loops and back to the caller blocked on Err.
type Ctx struct {
	Request  *fasthttp.Request
	Response *fasthttp.Response
	Err      chan error
}

// AcquireCtx returns a Ctx ready to be queued on Conn.Write.
func AcquireCtx(req *fasthttp.Request, res *fasthttp.Response) *Ctx {
	return &Ctx{
		Request:  req,
		Response: res,
		Err:      make(chan error, 1),
	}
}
