package capture

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/bryanchriswhite/hyprpeek/internal/logger"
	"github.com/bryanchriswhite/hyprpeek/internal/proto/toplevel_export"
)

// waylandClient is the live exportClient over a Wayland connection with
// wl_shm and hyprland_toplevel_export_manager_v1 bound.
type waylandClient struct {
	display  *client.Display
	ctx      *client.Context
	registry *client.Registry
	shm      *client.Shm
	manager  *toplevel_export.HyprlandToplevelExportManagerV1
}

// connectWayland connects to the display named by the environment and
// binds the two globals the capture pipeline needs.
func connectWayland() (*waylandClient, error) {
	log := logger.WithComponent("capture-session")

	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wayland display: %w", err)
	}

	w := &waylandClient{
		display: display,
		ctx:     display.Context(),
	}

	registry, err := display.GetRegistry()
	if err != nil {
		w.ctx.Close()
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	w.registry = registry

	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case "wl_shm":
			shm := client.NewShm(w.ctx)
			if err := registry.Bind(e.Name, e.Interface, 1, shm); err != nil {
				log.Warn().Err(err).Msg("Failed to bind wl_shm")
				return
			}
			w.shm = shm

		case toplevel_export.HyprlandToplevelExportManagerV1InterfaceName:
			mgr := toplevel_export.NewHyprlandToplevelExportManagerV1(w.ctx)
			version := e.Version
			if version > 2 {
				version = 2
			}
			if err := registry.Bind(e.Name, e.Interface, version, mgr); err != nil {
				log.Warn().Err(err).Msg("Failed to bind toplevel export manager")
				return
			}
			w.manager = mgr
		}
	})

	if err := w.roundtrip(); err != nil {
		w.ctx.Close()
		return nil, fmt.Errorf("registry roundtrip: %w", err)
	}

	if w.shm == nil {
		w.ctx.Close()
		return nil, fmt.Errorf("compositor does not advertise wl_shm")
	}
	if w.manager == nil {
		w.ctx.Close()
		return nil, fmt.Errorf("compositor does not support %s", toplevel_export.HyprlandToplevelExportManagerV1InterfaceName)
	}

	log.Info().Msg("Toplevel export protocol bound")
	return w, nil
}

// roundtrip blocks until the server has processed all prior requests.
func (w *waylandClient) roundtrip() error {
	callback, err := w.display.Sync()
	if err != nil {
		return err
	}
	defer callback.Destroy()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})

	for !done {
		if err := w.ctx.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (w *waylandClient) CaptureFrame(handle uint32) (exportFrame, error) {
	frame, err := w.manager.CaptureToplevel(0, handle)
	if err != nil {
		return nil, err
	}
	return &waylandFrame{frame: frame}, nil
}

func (w *waylandClient) CreatePool(fd uintptr, size int32) (exportPool, error) {
	pool, err := w.shm.CreatePool(int(fd), size)
	if err != nil {
		return nil, err
	}
	return &waylandPool{pool: pool}, nil
}

func (w *waylandClient) Dispatch() error {
	return w.ctx.Dispatch()
}

func (w *waylandClient) Close() {
	if w.manager != nil {
		w.manager.Destroy()
	}
	w.ctx.Close()
}

type waylandFrame struct {
	frame *toplevel_export.HyprlandToplevelExportFrameV1
}

func (f *waylandFrame) OnBuffer(fn func(format, width, height, stride uint32)) {
	f.frame.SetBufferHandler(func(e toplevel_export.HyprlandToplevelExportFrameV1BufferEvent) {
		fn(e.Format, e.Width, e.Height, e.Stride)
	})
}

func (f *waylandFrame) OnBufferDone(fn func()) {
	f.frame.SetBufferDoneHandler(func(toplevel_export.HyprlandToplevelExportFrameV1BufferDoneEvent) {
		fn()
	})
}

func (f *waylandFrame) OnReady(fn func()) {
	f.frame.SetReadyHandler(func(toplevel_export.HyprlandToplevelExportFrameV1ReadyEvent) {
		fn()
	})
}

func (f *waylandFrame) OnFailed(fn func()) {
	f.frame.SetFailedHandler(func(toplevel_export.HyprlandToplevelExportFrameV1FailedEvent) {
		fn()
	})
}

func (f *waylandFrame) Copy(buf exportBuffer, ignoreDamage int32) error {
	wb, ok := buf.(*waylandBuffer)
	if !ok {
		return fmt.Errorf("buffer does not belong to this connection")
	}
	return f.frame.Copy(wb.buffer, ignoreDamage)
}

func (f *waylandFrame) Destroy() error {
	return f.frame.Destroy()
}

type waylandPool struct {
	pool *client.ShmPool
}

func (p *waylandPool) CreateBuffer(offset, width, height, stride int32, format uint32) (exportBuffer, error) {
	buffer, err := p.pool.CreateBuffer(offset, width, height, stride, format)
	if err != nil {
		return nil, err
	}
	return &waylandBuffer{buffer: buffer}, nil
}

func (p *waylandPool) Destroy() error {
	return p.pool.Destroy()
}

type waylandBuffer struct {
	buffer *client.Buffer
}

func (b *waylandBuffer) Destroy() error {
	return b.buffer.Destroy()
}
