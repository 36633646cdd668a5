package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
	"github.com/bryanchriswhite/hyprpeek/internal/logger"
	"github.com/bryanchriswhite/hyprpeek/internal/preview"
)

// Topology answers workspace and monitor queries. *hypr.IPC satisfies it.
type Topology interface {
	Workspaces() ([]hypr.Workspace, error)
	Monitors() ([]hypr.Monitor, error)
}

// Server exposes the preview pipeline over HTTP and WebSocket. It is the
// surface a bar or launcher talks to instead of linking the pipeline in.
type Server struct {
	router   *mux.Router
	ctrl     *preview.Controller
	topology Topology
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[chan []byte]struct{}
}

// NewServer wires the routes and subscribes to canvas updates.
func NewServer(ctrl *preview.Controller, topology Topology) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		ctrl:     ctrl,
		topology: topology,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local tooling only; the daemon binds localhost
				return true
			},
		},
		clients: make(map[chan []byte]struct{}),
	}

	s.setupRoutes()
	ctrl.SetUpdateFunc(s.broadcastFrame)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/workspaces", s.handleWorkspaces).Methods("GET")
	api.HandleFunc("/monitors", s.handleMonitors).Methods("GET")
	api.HandleFunc("/preview.png", s.handlePreviewPNG).Methods("GET")
	api.HandleFunc("/preview/stream", s.handlePreviewStream)
}

// Start serves on the given port, blocking.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("localhost:%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Preview server listening")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.topology.Workspaces()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(workspaces)
}

func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.topology.Monitors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(monitors)
}

func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	canvas, workspaceID, ok := s.ctrl.Snapshot()
	if !ok {
		http.Error(w, "no preview available", http.StatusNotFound)
		return
	}

	img := canvas.RGBA()
	stampWorkspace(img, workspaceID)

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("PNG encode failed")
	}
}

// clientMessage is one pointer event from a connected UI.
type clientMessage struct {
	Type      string  `json:"type"` // hover, leave, click, motion
	Workspace int     `json:"workspace,omitempty"`
	Monitor   string  `json:"monitor,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// frameMessage carries one composited canvas to the UI.
type frameMessage struct {
	Type      string `json:"type"`
	Workspace int    `json:"workspace"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PNG       []byte `json:"png"`
}

// hitMessage answers motion hit-tests for hover highlighting.
type hitMessage struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
	Hit     bool   `json:"hit"`
}

func (s *Server) handlePreviewStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// outbound is the single write path for this connection: composited
	// frames and hit-test replies both go through it, so only one
	// goroutine ever writes to the socket.
	outbound := make(chan []byte, 8)
	s.clientsMu.Lock()
	s.clients[outbound] = struct{}{}
	s.clientsMu.Unlock()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for payload := range outbound {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()
	// Unregister before closing so the broadcaster can never send on a
	// closed channel.
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, outbound)
		s.clientsMu.Unlock()
		close(outbound)
		<-writerDone
	}()

	reply := func(v any) bool {
		payload, err := json.Marshal(v)
		if err != nil {
			return false
		}
		select {
		case outbound <- payload:
			return true
		default:
			return false
		}
	}

	// Reader: pointer events drive the controller
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "hover":
			s.ctrl.Hover(msg.Workspace, msg.Monitor)
		case "leave":
			s.ctrl.Leave()
		case "click":
			addr, hit := s.ctrl.Click(msg.X, msg.Y)
			reply(hitMessage{Type: "click", Address: addr.String(), Hit: hit})
		case "motion":
			addr, hit := s.ctrl.Motion(msg.X, msg.Y)
			reply(hitMessage{Type: "motion", Address: addr.String(), Hit: hit})
		default:
			log.Debug().Str("type", msg.Type).Msg("Unknown stream message")
		}
	}
}

// broadcastFrame encodes the current canvas once and fans it out to every
// connected stream client. Slow clients drop frames rather than stall the
// poll loop.
func (s *Server) broadcastFrame() {
	canvas, workspaceID, ok := s.ctrl.Snapshot()
	if !ok {
		return
	}

	s.clientsMu.Lock()
	idle := len(s.clients) == 0
	s.clientsMu.Unlock()
	if idle {
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.RGBA()); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("PNG encode failed")
		return
	}

	payload, err := json.Marshal(frameMessage{
		Type:      "frame",
		Workspace: workspaceID,
		Width:     canvas.Width,
		Height:    canvas.Height,
		PNG:       buf.Bytes(),
	})
	if err != nil {
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}
