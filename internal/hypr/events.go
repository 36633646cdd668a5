package hypr

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/hyprpeek/internal/logger"
)

// EventKind classifies an event from Hyprland's event socket.
type EventKind int

const (
	EventWorkspaceChanged EventKind = iota
	EventWorkspaceCreated
	EventWorkspaceDestroyed
	EventWorkspaceMoved
	EventMonitorFocusChanged
	EventActiveWindowChanged
)

// Event is one parsed line from the event socket. Fields are populated per
// kind: workspace events carry WorkspaceID (and MonitorName where the socket
// provides it), EventActiveWindowChanged carries Title.
type Event struct {
	Kind        EventKind
	WorkspaceID int
	MonitorName string
	Title       string
}

// Listener tails Hyprland's event socket and delivers parsed events to a
// callback. The callback runs on the listener goroutine.
type Listener struct {
	socketPath string

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewListener locates the Hyprland event socket from the environment.
func NewListener() (*Listener, error) {
	path, err := socketPath(".socket2.sock")
	if err != nil {
		return nil, err
	}
	return &Listener{socketPath: path}, nil
}

// Start connects and begins delivering events in a goroutine.
func (l *Listener) Start(callback func(Event)) error {
	conn, err := net.Dial("unix", l.socketPath)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.readLoop(conn, callback)
	return nil
}

// Stop closes the event socket, ending the read loop.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.conn != nil {
		l.conn.Close()
	}
}

func (l *Listener) readLoop(conn net.Conn, callback func(Event)) {
	log := logger.WithComponent("hypr-events")

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		ev, ok := parseEvent(scanner.Text())
		if !ok {
			continue
		}
		callback(ev)
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if !closed {
		log.Warn().Err(scanner.Err()).Msg("Event socket closed")
	}
}

// parseEvent parses one "EVENT>>DATA" line. Unknown events and malformed
// payloads are ignored.
func parseEvent(line string) (Event, bool) {
	name, data, found := strings.Cut(line, ">>")
	if !found {
		return Event{}, false
	}

	switch name {
	case "workspacev2":
		id, ok := eventWorkspaceID(data)
		return Event{Kind: EventWorkspaceChanged, WorkspaceID: id}, ok
	case "createworkspacev2":
		id, ok := eventWorkspaceID(data)
		return Event{Kind: EventWorkspaceCreated, WorkspaceID: id}, ok
	case "destroyworkspacev2":
		id, ok := eventWorkspaceID(data)
		return Event{Kind: EventWorkspaceDestroyed, WorkspaceID: id}, ok
	case "moveworkspacev2":
		// ID,NAME,MONNAME
		parts := strings.SplitN(data, ",", 3)
		if len(parts) != 3 {
			return Event{}, false
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return Event{}, false
		}
		return Event{Kind: EventWorkspaceMoved, WorkspaceID: id, MonitorName: parts[2]}, true
	case "focusedmonv2":
		// MONNAME,WSID
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return Event{}, false
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Event{}, false
		}
		return Event{Kind: EventMonitorFocusChanged, WorkspaceID: id, MonitorName: parts[0]}, true
	case "activewindow":
		// CLASS,TITLE
		_, title, _ := strings.Cut(data, ",")
		return Event{Kind: EventActiveWindowChanged, Title: title}, true
	}

	return Event{}, false
}

// eventWorkspaceID parses the leading workspace id of an "ID,NAME" payload.
func eventWorkspaceID(data string) (int, bool) {
	idStr, _, _ := strings.Cut(data, ",")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, false
	}
	return id, true
}
