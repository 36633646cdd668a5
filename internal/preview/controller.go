// Package preview owns the UI-facing side of the capture pipeline: it
// forwards hover events as capture requests, polls the result channel on
// a fixed cadence, composites the newest relevant result, and answers
// hit-tests against the composited canvas.
package preview

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprpeek/internal/capture"
	"github.com/bryanchriswhite/hyprpeek/internal/compose"
	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
	"github.com/bryanchriswhite/hyprpeek/internal/logger"
)

// CaptureBackend is the coalescing request/result surface of the capture
// service.
type CaptureBackend interface {
	Submit(capture.CaptureRequest)
	Results() <-chan *capture.CaptureResult
}

// FocusDispatcher focuses a window by address. *hypr.IPC satisfies it.
type FocusDispatcher interface {
	FocusWindow(addr hypr.Address) error
}

// Controller runs on the UI side of the channel pair. All methods are
// safe for concurrent use; blocking protocol work never happens here.
type Controller struct {
	backend      CaptureBackend
	focus        FocusDispatcher
	previewWidth int
	interval     time.Duration

	mu         sync.Mutex
	hovered    int
	hoveredMon string
	hoveredOK  bool
	canvas     *compose.Canvas
	regions    []compose.ClickRegion
	canvasWS   int
	onUpdate   func()

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewController creates a controller compositing to previewWidth and
// polling results at the given interval.
func NewController(backend CaptureBackend, focus FocusDispatcher, previewWidth int, interval time.Duration) *Controller {
	return &Controller{
		backend:      backend,
		focus:        focus,
		previewWidth: previewWidth,
		interval:     interval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the poll loop.
func (c *Controller) Start() {
	go c.run()
}

// Stop halts the poll loop.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// SetUpdateFunc registers a callback invoked after every canvas swap.
// The callback runs on the poll goroutine and must not block.
func (c *Controller) SetUpdateFunc(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Hover registers the workspace under the pointer and requests a capture.
func (c *Controller) Hover(workspaceID int, monitorName string) {
	c.mu.Lock()
	c.hovered = workspaceID
	c.hoveredMon = monitorName
	c.hoveredOK = true
	c.mu.Unlock()

	c.backend.Submit(capture.CaptureRequest{
		WorkspaceID: workspaceID,
		MonitorName: monitorName,
	})
}

// Refresh re-requests a capture of the hovered workspace. Call it when
// the compositor reports a change that may have invalidated the preview.
func (c *Controller) Refresh() {
	c.mu.Lock()
	workspaceID, monitorName, ok := c.hovered, c.hoveredMon, c.hoveredOK
	c.mu.Unlock()
	if !ok {
		return
	}

	c.backend.Submit(capture.CaptureRequest{
		WorkspaceID: workspaceID,
		MonitorName: monitorName,
	})
}

// Leave clears the hover; results arriving afterwards are discarded.
func (c *Controller) Leave() {
	c.mu.Lock()
	c.hovered = 0
	c.hoveredOK = false
	c.mu.Unlock()
}

// Snapshot returns the current canvas and the workspace it shows. The
// canvas is owned by the controller; callers must not retain it across
// poll ticks if they mutate it.
func (c *Controller) Snapshot() (*compose.Canvas, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canvas == nil {
		return nil, 0, false
	}
	return c.canvas, c.canvasWS, true
}

// Click hit-tests a canvas point and focuses the window shown there.
func (c *Controller) Click(x, y float64) (hypr.Address, bool) {
	c.mu.Lock()
	addr, ok := compose.HitTest(c.regions, x, y)
	if ok {
		c.hovered = 0
		c.hoveredOK = false
	}
	c.mu.Unlock()

	if !ok {
		return "", false
	}
	if err := c.focus.FocusWindow(addr); err != nil {
		logger.WithComponent("preview").Warn().
			Err(err).
			Str("address", addr.String()).
			Msg("Focus dispatch failed")
	}
	return addr, true
}

// Motion hit-tests a canvas point for hover highlighting, without side
// effects.
func (c *Controller) Motion(x, y float64) (hypr.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return compose.HitTest(c.regions, x, y)
}

func (c *Controller) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

// pollOnce drains all pending results and applies the newest one whose
// workspace is still under the pointer. Results for a workspace the
// pointer has left are dropped, never displayed.
func (c *Controller) pollOnce() {
	var latest *capture.CaptureResult

	for {
		select {
		case result := <-c.backend.Results():
			c.mu.Lock()
			relevant := c.hoveredOK && c.hovered == result.WorkspaceID
			c.mu.Unlock()
			if relevant {
				latest = result
			}
		default:
			if latest != nil {
				c.apply(latest)
			}
			return
		}
	}
}

// apply composites a result and swaps canvas and hit regions together.
func (c *Controller) apply(result *capture.CaptureResult) {
	canvas, regions := compose.Compose(result, c.previewWidth)

	c.mu.Lock()
	c.canvas = canvas
	c.regions = regions
	c.canvasWS = result.WorkspaceID
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
