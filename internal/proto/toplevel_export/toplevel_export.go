// Package toplevel_export is a client binding for the
// hyprland-toplevel-export-v1 protocol, which exports the contents of a
// single toplevel window into a client-supplied wl_buffer. It follows the
// shape of the bindings emitted by go-wayland-scanner.
package toplevel_export

import (
	"encoding/binary"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// HyprlandToplevelExportManagerV1InterfaceName is the registry global name.
const HyprlandToplevelExportManagerV1InterfaceName = "hyprland_toplevel_export_manager_v1"

// Frame copy flags.
const (
	HyprlandToplevelExportFrameV1FlagsYInvert = 1
)

// HyprlandToplevelExportManagerV1 creates export frames for toplevel
// windows identified by their Hyprland window address.
type HyprlandToplevelExportManagerV1 struct {
	client.BaseProxy
}

// NewHyprlandToplevelExportManagerV1 registers a manager proxy on the
// context. Bind it to the registry global before use.
func NewHyprlandToplevelExportManagerV1(ctx *client.Context) *HyprlandToplevelExportManagerV1 {
	m := &HyprlandToplevelExportManagerV1{}
	ctx.Register(m)
	return m
}

// CaptureToplevel requests a frame capturing the window with the given
// handle. overlayCursor is 1 to composite the cursor into the frame.
func (i *HyprlandToplevelExportManagerV1) CaptureToplevel(overlayCursor int32, handle uint32) (*HyprlandToplevelExportFrameV1, error) {
	frame := NewHyprlandToplevelExportFrameV1(i.Context())
	const opcode = 0
	const reqBufLen = 8 + 4 + 4 + 4
	var reqBuf [reqBufLen]byte
	l := 0
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], i.ID())
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], uint32(reqBufLen)<<16|opcode&0xffff)
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], frame.ID())
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], uint32(overlayCursor))
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], handle)
	err := i.Context().WriteMsg(reqBuf[:], nil)
	return frame, err
}

// Destroy releases the manager. Outstanding frames are unaffected.
func (i *HyprlandToplevelExportManagerV1) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 2
	const reqBufLen = 8
	var reqBuf [reqBufLen]byte
	binary.LittleEndian.PutUint32(reqBuf[0:4], i.ID())
	binary.LittleEndian.PutUint32(reqBuf[4:8], uint32(reqBufLen)<<16|opcode&0xffff)
	return i.Context().WriteMsg(reqBuf[:], nil)
}

// Dispatch handles manager events. The interface defines none.
func (i *HyprlandToplevelExportManagerV1) Dispatch(opcode uint32, fd int, data []byte) {}

// HyprlandToplevelExportFrameV1BufferEvent advertises one acceptable
// wl_shm buffer configuration for the frame. It may be sent several times;
// the final values are settled by buffer_done.
type HyprlandToplevelExportFrameV1BufferEvent struct {
	Format uint32
	Width  uint32
	Height uint32
	Stride uint32
}

// HyprlandToplevelExportFrameV1FlagsEvent carries frame flags, sent before
// ready.
type HyprlandToplevelExportFrameV1FlagsEvent struct {
	Flags uint32
}

// HyprlandToplevelExportFrameV1ReadyEvent signals the buffer copy
// finished; the buffer now holds the frame.
type HyprlandToplevelExportFrameV1ReadyEvent struct {
	TvSecHi uint32
	TvSecLo uint32
	TvNsec  uint32
}

// HyprlandToplevelExportFrameV1FailedEvent signals the capture attempt
// failed; the frame object must be destroyed.
type HyprlandToplevelExportFrameV1FailedEvent struct{}

// HyprlandToplevelExportFrameV1BufferDoneEvent signals all buffer
// candidates have been advertised; the client may allocate and copy.
type HyprlandToplevelExportFrameV1BufferDoneEvent struct{}

type (
	HyprlandToplevelExportFrameV1BufferHandlerFunc     func(HyprlandToplevelExportFrameV1BufferEvent)
	HyprlandToplevelExportFrameV1FlagsHandlerFunc      func(HyprlandToplevelExportFrameV1FlagsEvent)
	HyprlandToplevelExportFrameV1ReadyHandlerFunc      func(HyprlandToplevelExportFrameV1ReadyEvent)
	HyprlandToplevelExportFrameV1FailedHandlerFunc     func(HyprlandToplevelExportFrameV1FailedEvent)
	HyprlandToplevelExportFrameV1BufferDoneHandlerFunc func(HyprlandToplevelExportFrameV1BufferDoneEvent)
)

// HyprlandToplevelExportFrameV1 is one capture conversation: a single
// frame of a single window.
type HyprlandToplevelExportFrameV1 struct {
	client.BaseProxy
	bufferHandler     HyprlandToplevelExportFrameV1BufferHandlerFunc
	flagsHandler      HyprlandToplevelExportFrameV1FlagsHandlerFunc
	readyHandler      HyprlandToplevelExportFrameV1ReadyHandlerFunc
	failedHandler     HyprlandToplevelExportFrameV1FailedHandlerFunc
	bufferDoneHandler HyprlandToplevelExportFrameV1BufferDoneHandlerFunc
}

// NewHyprlandToplevelExportFrameV1 registers a frame proxy on the context.
func NewHyprlandToplevelExportFrameV1(ctx *client.Context) *HyprlandToplevelExportFrameV1 {
	f := &HyprlandToplevelExportFrameV1{}
	ctx.Register(f)
	return f
}

// Copy asks the compositor to copy the frame into buffer. ignoreDamage
// non-zero copies immediately without waiting for damage.
func (i *HyprlandToplevelExportFrameV1) Copy(buffer *client.Buffer, ignoreDamage int32) error {
	const opcode = 0
	const reqBufLen = 8 + 4 + 4
	var reqBuf [reqBufLen]byte
	l := 0
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], i.ID())
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], uint32(reqBufLen)<<16|opcode&0xffff)
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], buffer.ID())
	l += 4
	binary.LittleEndian.PutUint32(reqBuf[l:l+4], uint32(ignoreDamage))
	return i.Context().WriteMsg(reqBuf[:], nil)
}

// Destroy releases the frame object.
func (i *HyprlandToplevelExportFrameV1) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 1
	const reqBufLen = 8
	var reqBuf [reqBufLen]byte
	binary.LittleEndian.PutUint32(reqBuf[0:4], i.ID())
	binary.LittleEndian.PutUint32(reqBuf[4:8], uint32(reqBufLen)<<16|opcode&0xffff)
	return i.Context().WriteMsg(reqBuf[:], nil)
}

func (i *HyprlandToplevelExportFrameV1) SetBufferHandler(f HyprlandToplevelExportFrameV1BufferHandlerFunc) {
	i.bufferHandler = f
}

func (i *HyprlandToplevelExportFrameV1) SetFlagsHandler(f HyprlandToplevelExportFrameV1FlagsHandlerFunc) {
	i.flagsHandler = f
}

func (i *HyprlandToplevelExportFrameV1) SetReadyHandler(f HyprlandToplevelExportFrameV1ReadyHandlerFunc) {
	i.readyHandler = f
}

func (i *HyprlandToplevelExportFrameV1) SetFailedHandler(f HyprlandToplevelExportFrameV1FailedHandlerFunc) {
	i.failedHandler = f
}

func (i *HyprlandToplevelExportFrameV1) SetBufferDoneHandler(f HyprlandToplevelExportFrameV1BufferDoneHandlerFunc) {
	i.bufferDoneHandler = f
}

// Dispatch decodes and delivers one frame event.
func (i *HyprlandToplevelExportFrameV1) Dispatch(opcode uint32, fd int, data []byte) {
	switch opcode {
	case 0: // buffer
		if i.bufferHandler == nil {
			return
		}
		var e HyprlandToplevelExportFrameV1BufferEvent
		l := 0
		e.Format = binary.LittleEndian.Uint32(data[l : l+4])
		l += 4
		e.Width = binary.LittleEndian.Uint32(data[l : l+4])
		l += 4
		e.Height = binary.LittleEndian.Uint32(data[l : l+4])
		l += 4
		e.Stride = binary.LittleEndian.Uint32(data[l : l+4])
		i.bufferHandler(e)
	case 1: // damage: carries no state the client needs for a full copy
	case 2: // flags
		if i.flagsHandler == nil {
			return
		}
		var e HyprlandToplevelExportFrameV1FlagsEvent
		e.Flags = binary.LittleEndian.Uint32(data[0:4])
		i.flagsHandler(e)
	case 3: // ready
		if i.readyHandler == nil {
			return
		}
		var e HyprlandToplevelExportFrameV1ReadyEvent
		l := 0
		e.TvSecHi = binary.LittleEndian.Uint32(data[l : l+4])
		l += 4
		e.TvSecLo = binary.LittleEndian.Uint32(data[l : l+4])
		l += 4
		e.TvNsec = binary.LittleEndian.Uint32(data[l : l+4])
		i.readyHandler(e)
	case 4: // failed
		if i.failedHandler == nil {
			return
		}
		i.failedHandler(HyprlandToplevelExportFrameV1FailedEvent{})
	case 5: // linux_dmabuf: dmabuf capture is not supported here
	case 6: // buffer_done
		if i.bufferDoneHandler == nil {
			return
		}
		i.bufferDoneHandler(HyprlandToplevelExportFrameV1BufferDoneEvent{})
	}
}
