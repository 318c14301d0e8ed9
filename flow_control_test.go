package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowDepositWithdraw(t *testing.T) {
	w := NewWindow(100)
	assert.EqualValues(t, 100, w.Load())

	w.Withdraw(40)
	assert.EqualValues(t, 60, w.Load())

	err := w.Deposit(40)
	assert.NoError(t, err)
	assert.EqualValues(t, 100, w.Load())

	// a settings-induced shrink can legally push the window negative
	w.Withdraw(500)
	assert.EqualValues(t, -400, w.Load())
}

func TestWindowDepositOverflow(t *testing.T) {
	w := NewWindow(maxWindowValue)

	err := w.Deposit(1)
	assert.Error(t, err)
}

func drainWriter(t *testing.T, ch chan *FrameHeader) []*FrameHeader {
	t.Helper()

	var frames []*FrameHeader

	for {
		select {
		case fr := <-ch:
			frames = append(frames, fr)
		default:
			return frames
		}
	}
}

func newTestServerConn(connWindow, streamWindow int32) (*serverConn, *Stream) {
	sc := &serverConn{
		writer: make(chan *FrameHeader, 64),
	}
	sc.connSendWindow.Set(connWindow)
	sc.initialStreamWindow = streamWindow

	strm := NewStream(3, streamWindow)

	return sc, strm
}

func TestWriteDataSplitsOnStreamWindow(t *testing.T) {
	sc, strm := newTestServerConn(1<<20, 10)

	body := []byte("0123456789ABCDEFGHIJ") // 20 bytes, window only covers 10
	sc.writeData(strm, body, true)

	frames := drainWriter(t, sc.writer)
	if assert.Len(t, frames, 1) {
		data := frames[0].Body().(*Data)
		assert.Equal(t, body[:10], data.Data())
		assert.False(t, data.EndStream())
	}

	assert.EqualValues(t, 0, strm.window.Load())
	assert.Equal(t, body[10:], strm.pending)
	assert.True(t, strm.pendingEndStream)
}

func TestFlushPendingResumesAfterWindowUpdate(t *testing.T) {
	sc, strm := newTestServerConn(1<<20, 10)

	body := []byte("0123456789ABCDEFGHIJ")
	sc.writeData(strm, body, true)
	drainWriter(t, sc.writer)

	assert.NoError(t, strm.window.Deposit(11))

	strms := Streams{strm}
	sc.flushPending(strms)

	frames := drainWriter(t, sc.writer)
	if assert.Len(t, frames, 1) {
		data := frames[0].Body().(*Data)
		assert.Equal(t, body[10:], data.Data())
		assert.True(t, data.EndStream())
	}
	assert.Empty(t, strm.pending)
}

func TestWriteDataZeroLengthBodySendsEndStream(t *testing.T) {
	sc, strm := newTestServerConn(1<<20, 1<<20)

	sc.writeData(strm, nil, true)

	frames := drainWriter(t, sc.writer)
	if assert.Len(t, frames, 1) {
		data := frames[0].Body().(*Data)
		assert.Empty(t, data.Data())
		assert.True(t, data.EndStream())
	}
}

func TestWriteDataZeroLengthBodyWithoutEndStreamSendsNothing(t *testing.T) {
	sc, strm := newTestServerConn(1<<20, 1<<20)

	sc.writeData(strm, nil, false)

	assert.Empty(t, drainWriter(t, sc.writer))
}

func TestApplySettingsGrowsOpenStreamWindows(t *testing.T) {
	sc, strm1 := newTestServerConn(1<<20, 65535)
	strm2 := NewStream(5, 65535)
	strms := Streams{strm1, strm2}

	sc.clientS.Reset()
	sc.initialStreamWindow = int32(sc.clientS.MaxWindowSize())
	strm1.window.Set(sc.initialStreamWindow)
	strm2.window.Set(sc.initialStreamWindow)

	st := &Settings{}
	st.Reset()
	st.SetMaxWindowSize(65535 + 65535)

	sc.applySettings(st, strms)

	assert.EqualValues(t, 65535+65535, strm1.window.Load())
	assert.EqualValues(t, 65535+65535, strm2.window.Load())

	frames := drainWriter(t, sc.writer)
	if assert.Len(t, frames, 1) {
		assert.Equal(t, FrameSettings, frames[0].Type())
		assert.True(t, frames[0].Body().(*Settings).IsAck())
	}
}

func TestApplySettingsShrinksOpenStreamWindowsBelowZero(t *testing.T) {
	sc, strm1 := newTestServerConn(1<<20, 65535)
	strms := Streams{strm1}

	sc.clientS.Reset()
	sc.clientS.SetMaxWindowSize(65535)
	sc.initialStreamWindow = 65535
	strm1.window.Set(1000)

	st := &Settings{}
	st.Reset()
	st.SetMaxWindowSize(100)

	sc.applySettings(st, strms)

	assert.EqualValues(t, 1000-(65535-100), strm1.window.Load())
}
