package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/config"
)

var (
	logsLines  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the log file",
	Long: `Print the last lines of the panes log. The UI owns the terminal while it
runs, so diagnostics are written to this file instead.

Examples:
  panes logs           # last 50 lines
  panes logs -n 200 -f # follow from the last 200 lines`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := logPath
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path = cfg.LogPath
		}
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "panes.log")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return tailLogFile(ctx, cmd.OutOrStdout(), path, logsLines, logsFollow)
	},
}

// tailLogFile prints the last n lines from path, optionally following for
// new content until ctx is cancelled.
func tailLogFile(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("log file not found: %s", path)
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	lines, err := readLastLines(f, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprint(w, line)
	}
	if !follow {
		return nil
	}

	buf := make([]byte, 4096)
	for {
		nr, err := f.Read(buf)
		if nr > 0 {
			if _, werr := w.Write(buf[:nr]); werr != nil {
				return werr
			}
		}
		if err != nil && err != io.EOF {
			return err
		}
		if nr == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
}

// readLastLines returns the last n lines of f, each with its trailing
// newline, and leaves f positioned at the end.
func readLastLines(f *os.File, n int) ([]string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if err == io.EOF {
				line += "\n"
			}
			lines = append(lines, line)
			if len(lines) > n {
				lines = lines[1:]
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if n <= 0 {
		lines = nil
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return lines, nil
}
