package hypr

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is the stable opaque identifier Hyprland assigns to a toplevel
// window, e.g. "0x55d2f2a8a900".
type Address string

// Handle returns the toplevel handle used by the capture protocol: the low
// 32 bits of the hex address.
func (a Address) Handle() (uint32, error) {
	hex := strings.TrimPrefix(string(a), "0x")
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window address %q: %w", a, err)
	}
	return uint32(v), nil
}

func (a Address) String() string {
	return string(a)
}

// WorkspaceRef identifies the workspace a client sits on.
type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client is one toplevel window as reported by the "clients" query.
type Client struct {
	Address   Address      `json:"address"`
	Mapped    bool         `json:"mapped"`
	Hidden    bool         `json:"hidden"`
	At        [2]int       `json:"at"`
	Size      [2]int       `json:"size"`
	Workspace WorkspaceRef `json:"workspace"`
	Class     string       `json:"class"`
	Title     string       `json:"title"`
	Monitor   int          `json:"monitor"`
}

// Monitor is one output as reported by the "monitors" query. Width and
// Height are physical pixels; LogicalWidth/LogicalHeight divide out the
// fractional scale.
type Monitor struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	X               int          `json:"x"`
	Y               int          `json:"y"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	Scale           float64      `json:"scale"`
	Focused         bool         `json:"focused"`
	ActiveWorkspace WorkspaceRef `json:"activeWorkspace"`
}

// LogicalWidth returns the monitor width in logical (layout) pixels.
func (m Monitor) LogicalWidth() int {
	if m.Scale <= 0 {
		return m.Width
	}
	return int(float64(m.Width) / m.Scale)
}

// LogicalHeight returns the monitor height in logical (layout) pixels.
func (m Monitor) LogicalHeight() int {
	if m.Scale <= 0 {
		return m.Height
	}
	return int(float64(m.Height) / m.Scale)
}

// Workspace is one virtual desktop as reported by the "workspaces" query.
type Workspace struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Monitor string `json:"monitor"`
	Windows int    `json:"windows"`
}
