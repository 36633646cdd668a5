package capture

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
)

type fakeQueries struct {
	monitor hypr.Monitor
	clients map[int][]hypr.Client

	mu       sync.Mutex
	resolved []int
}

func (q *fakeQueries) MonitorByName(name string) (hypr.Monitor, error) {
	if name != q.monitor.Name {
		return hypr.Monitor{}, fmt.Errorf("monitor %q not found", name)
	}
	return q.monitor, nil
}

func (q *fakeQueries) WorkspaceClients(workspaceID int) ([]hypr.Client, error) {
	q.mu.Lock()
	q.resolved = append(q.resolved, workspaceID)
	q.mu.Unlock()
	return q.clients[workspaceID], nil
}

func (q *fakeQueries) resolvedIDs() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]int, len(q.resolved))
	copy(out, q.resolved)
	return out
}

type fakeCapturer struct {
	fail map[uint32]bool
}

func (c *fakeCapturer) CaptureWindow(handle uint32) (*Frame, error) {
	if c.fail[handle] {
		return nil, fmt.Errorf("capture failed for %#x", handle)
	}
	return &Frame{
		Data:   make([]byte, 16*4),
		Width:  4,
		Height: 4,
		Stride: 16,
	}, nil
}

func testMonitor() hypr.Monitor {
	return hypr.Monitor{Name: "DP-1", X: 1920, Y: 0, Width: 1920, Height: 1080, Scale: 1.0}
}

func testClient(addr hypr.Address, ws, x, y, w, h int) hypr.Client {
	return hypr.Client{
		Address:   addr,
		Mapped:    true,
		At:        [2]int{x, y},
		Size:      [2]int{w, h},
		Workspace: hypr.WorkspaceRef{ID: ws},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCaptureWorkspacePositionsMonitorRelative(t *testing.T) {
	q := &fakeQueries{
		monitor: testMonitor(),
		clients: map[int][]hypr.Client{
			3: {testClient("0x1000", 3, 2880, 100, 960, 540)},
		},
	}
	s := NewService(q, &fakeCapturer{})

	result, err := s.captureWorkspace(CaptureRequest{WorkspaceID: 3, MonitorName: "DP-1"})
	if err != nil {
		t.Fatalf("captureWorkspace: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if len(result.Thumbnails) != 1 {
		t.Fatalf("thumbnails = %d, want 1", len(result.Thumbnails))
	}

	thumb := result.Thumbnails[0]
	if thumb.X != 960 || thumb.Y != 100 {
		t.Errorf("position = (%d,%d), want (960,100)", thumb.X, thumb.Y)
	}
	if thumb.WinWidth != 960 || thumb.WinHeight != 540 {
		t.Errorf("size = (%d,%d), want (960,540)", thumb.WinWidth, thumb.WinHeight)
	}
	if result.MonitorWidth != 1920 || result.MonitorHeight != 1080 {
		t.Errorf("monitor = %dx%d, want 1920x1080", result.MonitorWidth, result.MonitorHeight)
	}
}

func TestCaptureWorkspaceEmptyYieldsNothing(t *testing.T) {
	q := &fakeQueries{monitor: testMonitor(), clients: map[int][]hypr.Client{}}
	s := NewService(q, &fakeCapturer{})

	result, err := s.captureWorkspace(CaptureRequest{WorkspaceID: 9, MonitorName: "DP-1"})
	if err != nil {
		t.Fatalf("captureWorkspace: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result for empty workspace, got %+v", result)
	}
}

func TestCaptureWorkspaceAllFailuresYieldsNothing(t *testing.T) {
	q := &fakeQueries{
		monitor: testMonitor(),
		clients: map[int][]hypr.Client{
			1: {
				testClient("0x1000", 1, 1920, 0, 960, 540),
				testClient("0x2000", 1, 2880, 0, 960, 540),
			},
		},
	}
	s := NewService(q, &fakeCapturer{fail: map[uint32]bool{0x1000: true, 0x2000: true}})

	result, err := s.captureWorkspace(CaptureRequest{WorkspaceID: 1, MonitorName: "DP-1"})
	if err != nil {
		t.Fatalf("captureWorkspace: %v", err)
	}
	if result != nil {
		t.Fatal("expected no result when every window capture fails")
	}
}

func TestCaptureWorkspacePartialFailureKeepsRest(t *testing.T) {
	q := &fakeQueries{
		monitor: testMonitor(),
		clients: map[int][]hypr.Client{
			1: {
				testClient("0x1000", 1, 1920, 0, 960, 540),
				testClient("0x2000", 1, 2880, 0, 960, 540),
			},
		},
	}
	s := NewService(q, &fakeCapturer{fail: map[uint32]bool{0x1000: true}})

	result, err := s.captureWorkspace(CaptureRequest{WorkspaceID: 1, MonitorName: "DP-1"})
	if err != nil {
		t.Fatalf("captureWorkspace: %v", err)
	}
	if result == nil || len(result.Thumbnails) != 1 {
		t.Fatalf("expected exactly the surviving thumbnail, got %+v", result)
	}
	if result.Thumbnails[0].Address != "0x2000" {
		t.Errorf("surviving address = %s", result.Thumbnails[0].Address)
	}
}

func TestDrainToLatest(t *testing.T) {
	s := NewService(&fakeQueries{monitor: testMonitor()}, &fakeCapturer{})

	for i := 1; i <= 5; i++ {
		s.Submit(CaptureRequest{WorkspaceID: i, MonitorName: "DP-1"})
	}

	first := <-s.requests
	got := s.drainToLatest(first)
	if got.WorkspaceID != 5 {
		t.Fatalf("drained to workspace %d, want 5", got.WorkspaceID)
	}

	select {
	case leftover := <-s.requests:
		t.Fatalf("queue not empty after drain: %+v", leftover)
	default:
	}
}

func TestSubmitDropsOldestWhenFull(t *testing.T) {
	s := NewService(&fakeQueries{monitor: testMonitor()}, &fakeCapturer{})

	for i := 1; i <= queueDepth+8; i++ {
		s.Submit(CaptureRequest{WorkspaceID: i, MonitorName: "DP-1"})
	}

	first := <-s.requests
	latest := s.drainToLatest(first)
	if latest.WorkspaceID != queueDepth+8 {
		t.Fatalf("latest = %d, want %d", latest.WorkspaceID, queueDepth+8)
	}
}

func TestServiceProcessesLatestRequest(t *testing.T) {
	q := &fakeQueries{
		monitor: testMonitor(),
		clients: map[int][]hypr.Client{
			5: {testClient("0x5000", 5, 1920, 0, 960, 540)},
		},
	}
	s := NewService(q, &fakeCapturer{})

	// Queue several requests before the worker starts; only the newest
	// must be acted on.
	for i := 1; i <= 5; i++ {
		s.Submit(CaptureRequest{WorkspaceID: i, MonitorName: "DP-1"})
	}
	s.Start()
	defer s.Stop()

	var result *CaptureResult
	waitFor(t, time.Second, func() bool {
		select {
		case result = <-s.Results():
			return true
		default:
			return false
		}
	})

	if result.WorkspaceID != 5 {
		t.Errorf("result workspace = %d, want 5", result.WorkspaceID)
	}
	if ids := q.resolvedIDs(); len(ids) != 1 || ids[0] != 5 {
		t.Errorf("resolved workspaces = %v, want [5]", ids)
	}
}

func TestServiceWithNilSessionDiscardsRequests(t *testing.T) {
	q := &fakeQueries{
		monitor: testMonitor(),
		clients: map[int][]hypr.Client{
			1: {testClient("0x1000", 1, 1920, 0, 960, 540)},
		},
	}
	s := NewService(q, nil)
	s.Start()
	defer s.Stop()

	s.Submit(CaptureRequest{WorkspaceID: 1, MonitorName: "DP-1"})

	time.Sleep(50 * time.Millisecond)
	select {
	case result := <-s.Results():
		t.Fatalf("disabled service emitted a result: %+v", result)
	default:
	}
	if ids := q.resolvedIDs(); len(ids) != 0 {
		t.Errorf("disabled service resolved workspaces: %v", ids)
	}
}
