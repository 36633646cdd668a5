package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hyprpeek",
		Short: "hyprpeek - Live workspace previews for Hyprland",
		Long: `hyprpeek captures live thumbnails of the windows on a Hyprland
workspace and composites them into a single preview image, served over
HTTP and WebSocket for bars, docks, and launchers.

Features:
  • Per-window capture via hyprland-toplevel-export-v1
  • Hover-driven, latest-wins capture scheduling
  • Click-to-focus through composited hit regions
  • Live updates on workspace and focus events
  • Persistent configuration`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hyprpeek/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8089)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
