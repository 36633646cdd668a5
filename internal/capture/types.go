package capture

import "github.com/bryanchriswhite/hyprpeek/internal/hypr"

// CaptureRequest asks for thumbnails of every mapped window on a workspace.
// Requests are transient: a newer request supersedes any unconsumed one.
type CaptureRequest struct {
	WorkspaceID int
	MonitorName string
}

// WindowThumbnail is the captured pixels of one window plus its placement.
// Position is relative to the monitor origin in logical pixels; the pixel
// buffer is owned exclusively by the CaptureResult that carries it.
type WindowThumbnail struct {
	Data   []byte
	Width  uint32
	Height uint32
	Stride uint32

	X         int
	Y         int
	WinWidth  int
	WinHeight int

	Address hypr.Address
}

// CaptureResult is one completed capture cycle. It is produced once by the
// capture service and consumed exactly once by the compositor.
type CaptureResult struct {
	WorkspaceID   int
	Thumbnails    []WindowThumbnail
	MonitorWidth  int
	MonitorHeight int
}
