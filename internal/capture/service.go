package capture

import (
	"sync"

	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
	"github.com/bryanchriswhite/hyprpeek/internal/logger"
)

const queueDepth = 16

// Queries resolves workspace membership and monitor geometry before a
// capture cycle. *hypr.IPC satisfies it.
type Queries interface {
	MonitorByName(name string) (hypr.Monitor, error)
	WorkspaceClients(workspaceID int) ([]hypr.Client, error)
}

// WindowCapturer captures one window frame. *Session satisfies it.
type WindowCapturer interface {
	CaptureWindow(handle uint32) (*Frame, error)
}

// Service sequences workspace captures behind a single worker goroutine
// that owns the protocol session exclusively. Requests are coalesced:
// whenever several are queued, only the newest is acted on.
type Service struct {
	queries Queries
	session WindowCapturer

	requests chan CaptureRequest
	results  chan *CaptureResult
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewService creates a capture service. session may be nil when the
// compositor lacks export support; the service then discards every request
// and previews stay disabled for the process lifetime.
func NewService(queries Queries, session WindowCapturer) *Service {
	return &Service{
		queries:  queries,
		session:  session,
		requests: make(chan CaptureRequest, queueDepth),
		results:  make(chan *CaptureResult, queueDepth),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (s *Service) Start() {
	if s.session == nil {
		logger.WithComponent("capture-service").Warn().
			Msg("Capture session unavailable, workspace previews disabled")
	}
	go s.run()
}

// Stop terminates the worker. In-flight captures finish first.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// Submit enqueues a capture request without blocking. When the queue is
// full the oldest pending request is discarded: it has been superseded
// anyway.
func (s *Service) Submit(req CaptureRequest) {
	for {
		select {
		case s.requests <- req:
			return
		default:
		}
		select {
		case <-s.requests:
		default:
		}
	}
}

// Results is the channel the UI poll loop drains.
func (s *Service) Results() <-chan *CaptureResult {
	return s.results
}

func (s *Service) run() {
	defer close(s.done)
	log := logger.WithComponent("capture-service")

	for {
		var req CaptureRequest
		select {
		case <-s.stop:
			return
		case req = <-s.requests:
		}
		req = s.drainToLatest(req)

		if s.session == nil {
			continue
		}

		result, err := s.captureWorkspace(req)
		if err != nil {
			log.Debug().
				Err(err).
				Int("workspace", req.WorkspaceID).
				Msg("Capture cycle failed")
			continue
		}
		if result == nil {
			// Empty workspace or all windows failed: drop the cycle so
			// the UI keeps whatever it is already showing.
			continue
		}

		s.emit(result)
	}
}

// drainToLatest discards already-queued requests, keeping the newest.
// Draining after a blocking receive adds no latency on the common
// single-request path.
func (s *Service) drainToLatest(req CaptureRequest) CaptureRequest {
	for {
		select {
		case newer := <-s.requests:
			req = newer
		default:
			return req
		}
	}
}

// emit hands the result off without blocking, dropping the oldest pending
// result if the UI has fallen behind.
func (s *Service) emit(result *CaptureResult) {
	for {
		select {
		case s.results <- result:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}

// captureWorkspace resolves the live window list and captures each window
// sequentially. A nil result with nil error means the cycle produced no
// thumbnails and must be discarded silently.
func (s *Service) captureWorkspace(req CaptureRequest) (*CaptureResult, error) {
	log := logger.WithComponent("capture-service")

	monitor, err := s.queries.MonitorByName(req.MonitorName)
	if err != nil {
		return nil, err
	}

	clients, err := s.queries.WorkspaceClients(req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}

	thumbnails := make([]WindowThumbnail, 0, len(clients))
	for _, cl := range clients {
		handle, err := cl.Address.Handle()
		if err != nil {
			log.Debug().Str("address", cl.Address.String()).Msg("Skipping window with unparsable address")
			continue
		}

		frame, err := s.session.CaptureWindow(handle)
		if err != nil {
			// One window failing must not sink the rest of the workspace.
			log.Debug().
				Err(err).
				Str("address", cl.Address.String()).
				Msg("Window capture failed")
			continue
		}

		thumbnails = append(thumbnails, WindowThumbnail{
			Data:      frame.Data,
			Width:     frame.Width,
			Height:    frame.Height,
			Stride:    frame.Stride,
			X:         cl.At[0] - monitor.X,
			Y:         cl.At[1] - monitor.Y,
			WinWidth:  cl.Size[0],
			WinHeight: cl.Size[1],
			Address:   cl.Address,
		})
	}

	if len(thumbnails) == 0 {
		return nil, nil
	}

	return &CaptureResult{
		WorkspaceID:   req.WorkspaceID,
		Thumbnails:    thumbnails,
		MonitorWidth:  monitor.LogicalWidth(),
		MonitorHeight: monitor.LogicalHeight(),
	}, nil
}
