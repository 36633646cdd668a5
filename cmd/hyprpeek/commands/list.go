package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces, monitors, or windows",
	Long: `List the workspaces, monitors, or windows Hyprland currently reports.

This command talks to the Hyprland IPC socket directly; the daemon does
not need to be running.`,
	Example: `  # List workspaces in table format (default)
  hyprpeek list

  # List monitors
  hyprpeek list --monitors

  # List the windows on workspace 3
  hyprpeek list --workspace 3

  # JSON output
  hyprpeek list --format json`,
	RunE: runList,
}

var (
	listFormat    string
	listMonitors  bool
	listWorkspace int
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVarP(&listMonitors, "monitors", "m", false, "list monitors instead of workspaces")
	listCmd.Flags().IntVarP(&listWorkspace, "workspace", "w", 0, "list the windows on the given workspace")
}

func runList(cmd *cobra.Command, args []string) error {
	ipc, err := hypr.NewIPC()
	if err != nil {
		return fmt.Errorf("failed to connect to Hyprland IPC: %w", err)
	}

	switch {
	case listMonitors:
		return listMonitorsOut(ipc)
	case listWorkspace != 0:
		return listWindowsOut(ipc, listWorkspace)
	default:
		return listWorkspacesOut(ipc)
	}
}

func listWorkspacesOut(ipc *hypr.IPC) error {
	workspaces, err := ipc.Workspaces()
	if err != nil {
		return fmt.Errorf("failed to get workspaces: %w", err)
	}

	if listFormat == "json" {
		return printJSON(workspaces)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tMONITOR\tWINDOWS")
	fmt.Fprintln(w, "--\t----\t-------\t-------")
	for _, ws := range workspaces {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", ws.ID, ws.Name, ws.Monitor, ws.Windows)
	}
	return nil
}

func listMonitorsOut(ipc *hypr.IPC) error {
	monitors, err := ipc.Monitors()
	if err != nil {
		return fmt.Errorf("failed to get monitors: %w", err)
	}

	if listFormat == "json" {
		return printJSON(monitors)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tSIZE\tPOSITION\tSCALE")
	fmt.Fprintln(w, "----\t----\t--------\t-----")
	for _, m := range monitors {
		fmt.Fprintf(w, "%s\t%dx%d\t(%d, %d)\t%.2f\n",
			m.Name, m.Width, m.Height, m.X, m.Y, m.Scale)
	}
	return nil
}

func listWindowsOut(ipc *hypr.IPC, workspaceID int) error {
	clients, err := ipc.WorkspaceClients(workspaceID)
	if err != nil {
		return fmt.Errorf("failed to get windows: %w", err)
	}

	if listFormat == "json" {
		return printJSON(clients)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ADDRESS\tCLASS\tTITLE\tGEOMETRY")
	fmt.Fprintln(w, "-------\t-----\t-----\t--------")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d at (%d, %d)\n",
			c.Address, c.Class, c.Title,
			c.Size[0], c.Size[1], c.At[0], c.At[1])
	}
	return nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
