package capture

import (
	"fmt"
	"testing"
)

// frameEvent delivers one scripted protocol event to the in-flight frame.
type frameEvent func(f *mockFrame)

func evBuffer(format, w, h, stride uint32) frameEvent {
	return func(f *mockFrame) { f.onBuffer(format, w, h, stride) }
}

func evBufferDone() frameEvent {
	return func(f *mockFrame) { f.onBufferDone() }
}

func evReady() frameEvent {
	return func(f *mockFrame) { f.onReady() }
}

func evFailed() frameEvent {
	return func(f *mockFrame) { f.onFailed() }
}

// mockConn scripts the compositor side of a capture conversation and
// counts protocol objects so leak checks can assert everything created was
// destroyed.
type mockConn struct {
	script [][]frameEvent
	step   int

	frame *mockFrame

	framesLive  int
	poolsLive   int
	buffersLive int

	captureErr  error
	dispatchErr error

	bufferFormats []uint32
}

func (c *mockConn) CaptureFrame(handle uint32) (exportFrame, error) {
	if c.captureErr != nil {
		return nil, c.captureErr
	}
	c.framesLive++
	c.frame = &mockFrame{conn: c}
	return c.frame, nil
}

func (c *mockConn) CreatePool(fd uintptr, size int32) (exportPool, error) {
	c.poolsLive++
	return &mockPool{conn: c}, nil
}

func (c *mockConn) Dispatch() error {
	if c.dispatchErr != nil {
		return c.dispatchErr
	}
	if c.step >= len(c.script) {
		return fmt.Errorf("dispatch past end of script")
	}
	batch := c.script[c.step]
	c.step++
	for _, ev := range batch {
		ev(c.frame)
	}
	return nil
}

func (c *mockConn) Close() {}

func (c *mockConn) outstanding() int {
	return c.framesLive + c.poolsLive + c.buffersLive
}

type mockFrame struct {
	conn         *mockConn
	onBuffer     func(format, w, h, stride uint32)
	onBufferDone func()
	onReady      func()
	onFailed     func()
	copied       bool
	destroyed    bool
}

func (f *mockFrame) OnBuffer(fn func(format, w, h, stride uint32)) { f.onBuffer = fn }
func (f *mockFrame) OnBufferDone(fn func())                       { f.onBufferDone = fn }
func (f *mockFrame) OnReady(fn func())                            { f.onReady = fn }
func (f *mockFrame) OnFailed(fn func())                           { f.onFailed = fn }

func (f *mockFrame) Copy(buf exportBuffer, ignoreDamage int32) error {
	f.copied = true
	return nil
}

func (f *mockFrame) Destroy() error {
	if f.destroyed {
		return fmt.Errorf("frame destroyed twice")
	}
	f.destroyed = true
	f.conn.framesLive--
	return nil
}

type mockPool struct {
	conn      *mockConn
	destroyed bool
}

func (p *mockPool) CreateBuffer(offset, width, height, stride int32, format uint32) (exportBuffer, error) {
	p.conn.buffersLive++
	p.conn.bufferFormats = append(p.conn.bufferFormats, format)
	return &mockBuffer{conn: p.conn}, nil
}

func (p *mockPool) Destroy() error {
	if p.destroyed {
		return fmt.Errorf("pool destroyed twice")
	}
	p.destroyed = true
	p.conn.poolsLive--
	return nil
}

type mockBuffer struct {
	conn      *mockConn
	destroyed bool
}

func (b *mockBuffer) Destroy() error {
	if b.destroyed {
		return fmt.Errorf("buffer destroyed twice")
	}
	b.destroyed = true
	b.conn.buffersLive--
	return nil
}

const (
	testWidth  = 4
	testHeight = 4
	testStride = 16
)

func TestCaptureWindowSuccess(t *testing.T) {
	conn := &mockConn{
		script: [][]frameEvent{
			{evBuffer(FormatARGB8888, testWidth, testHeight, testStride), evBufferDone()},
			{evReady()},
		},
	}
	s := newSession(conn)

	frame, err := s.CaptureWindow(0x1234)
	if err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if frame.Width != testWidth || frame.Height != testHeight || frame.Stride != testStride {
		t.Errorf("frame geometry = %dx%d stride %d", frame.Width, frame.Height, frame.Stride)
	}
	if len(frame.Data) != testStride*testHeight {
		t.Errorf("frame data length = %d, want %d", len(frame.Data), testStride*testHeight)
	}
	if !conn.frame.copied {
		t.Error("copy request never sent")
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects after success = %d, want 0", got)
	}
}

func TestCaptureWindowFormatPreference(t *testing.T) {
	// Two preferred formats then a non-preferred one: the last preferred
	// offer must win.
	const unacceptable = uint32(0x34324258) // XB24
	conn := &mockConn{
		script: [][]frameEvent{
			{
				evBuffer(FormatARGB8888, testWidth, testHeight, testStride),
				evBuffer(FormatXRGB8888, testWidth, testHeight, testStride),
				evBuffer(unacceptable, testWidth, testHeight, testStride),
				evBufferDone(),
			},
			{evReady()},
		},
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if len(conn.bufferFormats) != 1 || conn.bufferFormats[0] != FormatXRGB8888 {
		t.Fatalf("negotiated formats = %#x, want [XRGB8888]", conn.bufferFormats)
	}
}

func TestCaptureWindowFallbackFormat(t *testing.T) {
	// A non-preferred offer sticks only while nothing else was seen.
	const odd = uint32(0x34324258)
	conn := &mockConn{
		script: [][]frameEvent{
			{evBuffer(odd, testWidth, testHeight, testStride), evBufferDone()},
			{evReady()},
		},
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if len(conn.bufferFormats) != 1 || conn.bufferFormats[0] != odd {
		t.Fatalf("negotiated formats = %#x, want [%#x]", conn.bufferFormats, odd)
	}
}

func TestCaptureWindowNegotiationFailure(t *testing.T) {
	conn := &mockConn{
		script: [][]frameEvent{
			{evFailed(), evBufferDone()},
		},
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err == nil {
		t.Fatal("expected error when compositor fails negotiation")
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects after failure = %d, want 0", got)
	}
}

func TestCaptureWindowNoFormatOffered(t *testing.T) {
	conn := &mockConn{
		script: [][]frameEvent{
			{evBufferDone()},
		},
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err == nil {
		t.Fatal("expected error when no format was offered")
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects = %d, want 0", got)
	}
}

func TestCaptureWindowCopyFailure(t *testing.T) {
	conn := &mockConn{
		script: [][]frameEvent{
			{evBuffer(FormatARGB8888, testWidth, testHeight, testStride), evBufferDone()},
			{evFailed()},
		},
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err == nil {
		t.Fatal("expected error when copy fails")
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects after copy failure = %d, want 0", got)
	}
}

func TestCaptureWindowDispatchError(t *testing.T) {
	conn := &mockConn{
		dispatchErr: fmt.Errorf("connection reset"),
	}
	s := newSession(conn)

	if _, err := s.CaptureWindow(1); err == nil {
		t.Fatal("expected error when dispatch errors")
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects after dispatch error = %d, want 0", got)
	}
}

func TestCaptureWindowStateResetBetweenCaptures(t *testing.T) {
	// A failed conversation must not poison the next one.
	conn := &mockConn{
		script: [][]frameEvent{
			{evFailed(), evBufferDone()},
		},
	}
	s := newSession(conn)
	if _, err := s.CaptureWindow(1); err == nil {
		t.Fatal("expected first capture to fail")
	}

	conn.script = [][]frameEvent{
		{evBuffer(FormatXRGB8888, testWidth, testHeight, testStride), evBufferDone()},
		{evReady()},
	}
	conn.step = 0

	if _, err := s.CaptureWindow(2); err != nil {
		t.Fatalf("second capture after failure: %v", err)
	}
	if got := conn.outstanding(); got != 0 {
		t.Errorf("outstanding protocol objects = %d, want 0", got)
	}
}
