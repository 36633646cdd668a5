package capture

import (
	"fmt"

	"github.com/bryanchriswhite/hyprpeek/internal/logger"
)

// wl_shm format codes the session accepts. Both are 32-bit little-endian
// with the color channels in B,G,R order; they differ only in whether the
// high byte carries alpha.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

func preferredFormat(format uint32) bool {
	return format == FormatARGB8888 || format == FormatXRGB8888
}

// framePhase tracks where a capture conversation stands.
type framePhase int

const (
	phaseNegotiating framePhase = iota
	phaseBufferReady
	phaseFrameReady
	phaseFrameFailed
)

// frameState is the per-conversation state machine. It is reset at the
// start of every capture and only ever touched from the worker goroutine.
type frameState struct {
	phase     framePhase
	hasFormat bool
	format    uint32
	width     uint32
	height    uint32
	stride    uint32
}

func (s *frameState) reset() {
	*s = frameState{phase: phaseNegotiating}
}

// offerBuffer records one advertised buffer configuration. A preferred
// 32-bit format always overrides an earlier candidate, so of several
// preferred offers the last one wins; a non-preferred offer only sticks
// while nothing has been seen yet.
func (s *frameState) offerBuffer(format, width, height, stride uint32) {
	if s.phase != phaseNegotiating {
		return
	}
	if !s.hasFormat || preferredFormat(format) {
		s.hasFormat = true
		s.format = format
		s.width = width
		s.height = height
		s.stride = stride
	}
}

// finishNegotiation transitions out of the negotiating phase once the
// compositor signals buffer_done.
func (s *frameState) finishNegotiation() {
	if s.phase != phaseNegotiating {
		return
	}
	if s.hasFormat {
		s.phase = phaseBufferReady
	} else {
		s.phase = phaseFrameFailed
	}
}

func (s *frameState) markReady() {
	s.phase = phaseFrameReady
}

func (s *frameState) markFailed() {
	s.phase = phaseFrameFailed
}

// exportClient is the protocol surface the session drives. The live
// implementation speaks hyprland-toplevel-export-v1 over a Wayland
// connection; tests substitute a counting mock.
type exportClient interface {
	// CaptureFrame opens a capture conversation for a window handle.
	CaptureFrame(handle uint32) (exportFrame, error)

	// CreatePool wraps a shared-memory fd in a wl_shm_pool.
	CreatePool(fd uintptr, size int32) (exportPool, error)

	// Dispatch blocks for and delivers the next batch of events.
	Dispatch() error

	// Close tears down the connection.
	Close()
}

type exportFrame interface {
	OnBuffer(func(format, width, height, stride uint32))
	OnBufferDone(func())
	OnReady(func())
	OnFailed(func())
	Copy(buf exportBuffer, ignoreDamage int32) error
	Destroy() error
}

type exportPool interface {
	CreateBuffer(offset, width, height, stride int32, format uint32) (exportBuffer, error)
	Destroy() error
}

type exportBuffer interface {
	Destroy() error
}

// Frame is the readback of one captured window.
type Frame struct {
	Data   []byte
	Width  uint32
	Height uint32
	Stride uint32
}

// Session owns the capture protocol connection. It is not safe for
// concurrent use: exactly one goroutine (the capture service worker) may
// drive it, and at most one conversation is in flight at a time.
type Session struct {
	conn  exportClient
	state frameState
}

// NewSession connects to the Wayland display and binds the shared-memory
// and toplevel-export globals. An error here means the compositor does not
// support window export; the caller degrades to no previews.
func NewSession() (*Session, error) {
	conn, err := connectWayland()
	if err != nil {
		return nil, err
	}
	return newSession(conn), nil
}

func newSession(conn exportClient) *Session {
	return &Session{conn: conn}
}

// Close releases the protocol connection.
func (s *Session) Close() {
	s.conn.Close()
}

// CaptureWindow performs one full-frame capture of the window with the
// given handle, blocking until the compositor reports ready or failed.
// Every protocol object created here is destroyed before returning,
// whichever path is taken.
func (s *Session) CaptureWindow(handle uint32) (*Frame, error) {
	s.state.reset()

	frame, err := s.conn.CaptureFrame(handle)
	if err != nil {
		return nil, fmt.Errorf("capture request: %w", err)
	}
	defer frame.Destroy()

	frame.OnBuffer(s.state.offerBuffer)
	frame.OnBufferDone(s.state.finishNegotiation)
	frame.OnReady(s.state.markReady)
	frame.OnFailed(s.state.markFailed)

	for s.state.phase == phaseNegotiating {
		if err := s.conn.Dispatch(); err != nil {
			return nil, fmt.Errorf("dispatch during negotiation: %w", err)
		}
	}

	if s.state.phase != phaseBufferReady {
		return nil, fmt.Errorf("buffer negotiation failed for handle %#x", handle)
	}

	width := s.state.width
	height := s.state.height
	stride := s.state.stride

	shm, err := NewShmBuffer(int(width), int(height), int(stride))
	if err != nil {
		return nil, err
	}
	defer shm.Close()

	pool, err := s.conn.CreatePool(shm.Fd(), int32(shm.Size()))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	defer pool.Destroy()

	buffer, err := pool.CreateBuffer(0, int32(width), int32(height), int32(stride), s.state.format)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	defer buffer.Destroy()

	if err := frame.Copy(buffer, 1); err != nil {
		return nil, fmt.Errorf("copy request: %w", err)
	}

	for s.state.phase == phaseBufferReady {
		if err := s.conn.Dispatch(); err != nil {
			return nil, fmt.Errorf("dispatch during copy: %w", err)
		}
	}

	if s.state.phase != phaseFrameReady {
		logger.WithComponent("capture-session").Debug().
			Uint32("handle", handle).
			Msg("Compositor reported frame failed")
		return nil, fmt.Errorf("frame copy failed for handle %#x", handle)
	}

	data := make([]byte, shm.Size())
	copy(data, shm.Data())

	return &Frame{
		Data:   data,
		Width:  width,
		Height: height,
		Stride: stride,
	}, nil
}
