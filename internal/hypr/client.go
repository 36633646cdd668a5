package hypr

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const requestTimeout = 2 * time.Second

// IPC is a client for Hyprland's request/response control socket. Each
// request opens a fresh connection; Hyprland serves one command per
// connection.
type IPC struct {
	socketPath string
}

// NewIPC locates the Hyprland control socket from the environment.
func NewIPC() (*IPC, error) {
	path, err := socketPath(".socket.sock")
	if err != nil {
		return nil, err
	}
	return &IPC{socketPath: path}, nil
}

// socketPath resolves a Hyprland IPC socket by name. Newer Hyprland puts
// sockets under $XDG_RUNTIME_DIR/hypr, older releases under /tmp/hypr.
func socketPath(name string) (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE not set: not running under Hyprland")
	}

	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		p := filepath.Join(runtimeDir, "hypr", sig, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	p := filepath.Join("/tmp", "hypr", sig, name)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("hyprland socket %s not found for instance %s", name, sig)
}

// request sends one command and returns the raw response.
func (c *IPC) request(command string) ([]byte, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hyprland socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(requestTimeout))

	if _, err := conn.Write([]byte(command)); err != nil {
		return nil, fmt.Errorf("failed to send %q: %w", command, err)
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %q: %w", command, err)
	}
	return resp, nil
}

// query runs a command with JSON output and decodes into out.
func (c *IPC) query(command string, out any) error {
	resp, err := c.request("j/" + command)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to decode %q response: %w", command, err)
	}
	return nil
}

// Clients returns all toplevel windows.
func (c *IPC) Clients() ([]Client, error) {
	var clients []Client
	if err := c.query("clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Monitors returns all connected outputs.
func (c *IPC) Monitors() ([]Monitor, error) {
	var monitors []Monitor
	if err := c.query("monitors", &monitors); err != nil {
		return nil, err
	}
	return monitors, nil
}

// Workspaces returns all workspaces.
func (c *IPC) Workspaces() ([]Workspace, error) {
	var workspaces []Workspace
	if err := c.query("workspaces", &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// ActiveWorkspace returns the workspace holding keyboard focus.
func (c *IPC) ActiveWorkspace() (Workspace, error) {
	var ws Workspace
	if err := c.query("activeworkspace", &ws); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// MonitorByName returns the named monitor.
func (c *IPC) MonitorByName(name string) (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.Name == name {
			return m, nil
		}
	}
	return Monitor{}, fmt.Errorf("monitor %q not found", name)
}

// WorkspaceClients returns the mapped, non-zero-size windows on a workspace.
func (c *IPC) WorkspaceClients(workspaceID int) ([]Client, error) {
	clients, err := c.Clients()
	if err != nil {
		return nil, err
	}
	matched := make([]Client, 0, len(clients))
	for _, cl := range clients {
		if cl.Workspace.ID == workspaceID && cl.Mapped && cl.Size[0] > 0 && cl.Size[1] > 0 {
			matched = append(matched, cl)
		}
	}
	return matched, nil
}

// dispatch runs a dispatcher command and checks for Hyprland's "ok" reply.
func (c *IPC) dispatch(args string) error {
	resp, err := c.request("dispatch " + args)
	if err != nil {
		return err
	}
	if reply := strings.TrimSpace(string(resp)); reply != "ok" {
		return fmt.Errorf("dispatch %q failed: %s", args, reply)
	}
	return nil
}

// FocusWindow focuses the window with the given address.
func (c *IPC) FocusWindow(addr Address) error {
	return c.dispatch("focuswindow address:" + addr.String())
}

// SwitchWorkspace switches the focused monitor to a workspace.
func (c *IPC) SwitchWorkspace(id int) error {
	return c.dispatch(fmt.Sprintf("workspace %d", id))
}
