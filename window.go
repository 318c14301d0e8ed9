package http2

import "sync/atomic"

// maxWindowValue is the largest value a flow-control window may hold,
// 2^31-1, per https://tools.ietf.org/html/rfc7540#section-6.9.1
const maxWindowValue = 1<<31 - 1

// Window is a signed send-side flow-control counter used for both
// connection-scope and stream-scope accounting. It is safe for concurrent
// use: the reader loop deposits WINDOW_UPDATE increments and
// INITIAL_WINDOW_SIZE deltas, while writer call sites withdraw bytes about
// to go out as DATA. Inbound DATA is not counted against a Window; receive
// windows are tracked with plain int32 counters.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type Window struct {
	v int64
}

// NewWindow returns a Window initialized to n.
func NewWindow(n int32) Window {
	return Window{v: int64(n)}
}

// Load returns the current window value. It may be negative: SETTINGS can
// shrink a stream's window below zero, after which the sender must wait
// for it to climb back above zero before writing more DATA.
func (w *Window) Load() int64 {
	return atomic.LoadInt64(&w.v)
}

// Set overwrites the window value, used when (re)initializing a stream.
func (w *Window) Set(n int32) {
	atomic.StoreInt64(&w.v, int64(n))
}

// Deposit adds delta (as carried by a WINDOW_UPDATE frame or a positive
// INITIAL_WINDOW_SIZE settings delta) to the window. It returns
// FlowControlError if the result would exceed 2^31-1.
func (w *Window) Deposit(delta int32) error {
	if atomic.AddInt64(&w.v, int64(delta)) > maxWindowValue {
		return NewResetStreamError(FlowControlError, "window exceeds maximum size")
	}
	return nil
}

// Withdraw subtracts n (bytes of DATA about to be written) from the
// window. Unlike Deposit this never fails: a negative window is legal
// after a SETTINGS-induced shrink, callers are expected to check Load
// before writing rather than relying on Withdraw to refuse.
func (w *Window) Withdraw(n int32) {
	atomic.AddInt64(&w.v, -int64(n))
}
