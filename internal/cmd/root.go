// Package cmd provides the CLI commands for panes.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/config"
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// global flags
var (
	profileFile *os.File // held open for profiling
	logPath     string
	verbose     bool
	serverURL   string
	metricsAddr string
)

// rootCmd is the root command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "panes",
	Short: "Multi-workspace, multi-pane client for a coding agent server",
	Long: `panes connects to a coding agent server over WebSocket and shows every
open workspace, with one or more agent sessions side by side.

Running without a subcommand attaches to the configured server.

Commands:
  attach    Connect and open the interactive UI (default)
  watch     Connect and print state changes
  config    Show the configuration
  theme     List and select themes
  language  Get or set the display language
  logs      Show the log file

Examples:
  panes                                 # Attach to the configured server
  panes --server ws://devbox:8787/ws    # Attach to another server
  panes watch --json                    # Stream the state as JSON lines`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if profilePath := os.Getenv("PANES_PROFILE"); profilePath != "" {
			f, err := os.Create(profilePath)
			if err != nil {
				return fmt.Errorf("create profile file: %w", err)
			}
			profileFile = f

			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				profileFile = nil
				return fmt.Errorf("start CPU profile: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if profileFile != nil {
			pprof.StopCPUProfile()
			profileFile.Close()
			profileFile = nil
		}
		return tuilog.Log.Close()
	},
	RunE: runAttach,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "write the log to this file (default: config log_path or ~/.panes/panes.log)")

	for _, c := range []*cobra.Command{rootCmd, attachCmd, watchCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "server WebSocket URL (overrides config server_url)")
		c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /debug/state on this address")
	}
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print each view as a JSON line")

	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep printing new lines")

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
	configCmd.AddCommand(configPathCmd, configShowCmd)
	themeCmd.AddCommand(themeListCmd, themeSetCmd)

	rootCmd.AddCommand(attachCmd, watchCmd, configCmd, themeCmd, languageCmd, logsCmd, versionCmd)
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and initializes logging and i18n.
func setup() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	path := logPath
	if path == "" {
		path = cfg.LogPath
	}
	if path == "" {
		if dir, err := config.Dir(); err == nil {
			path = filepath.Join(dir, "panes.log")
		}
	}
	if err := tuilog.Init(path); err != nil {
		return cfg, err
	}
	level := tuilog.ParseLevel(cfg.LogLevel)
	if verbose {
		level = tuilog.LevelDebug
	}
	tuilog.Log.SetLevel(level)
	i18n.Init(i18n.ResolveLocale(cfg.Language))
	return cfg, nil
}
