package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/view"
)

func TestReadLastLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    []string
	}{
		{"fewer than n", "a\nb\n", 5, []string{"a\n", "b\n"}},
		{"last n", "a\nb\nc\nd\n", 2, []string{"c\n", "d\n"}},
		{"no trailing newline", "a\nb", 1, []string{"b\n"}},
		{"empty", "", 3, nil},
		{"zero", "a\n", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "panes.log")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			got, err := readLastLines(f, tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTailLogFile_Missing(t *testing.T) {
	err := tailLogFile(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.log"), 10, false)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	v := view.View{
		Connected: true,
		Workspaces: []view.WorkspaceSummary{
			{ID: "w1", Name: "api", Active: true, Streaming: true},
			{ID: "w2", Name: "web"},
		},
		Active: &view.WorkspaceView{
			ID:   "w1",
			Name: "api",
			ActiveSlot: view.SlotView{
				ID:       "default",
				Exists:   true,
				Messages: []protocol.Message{{Role: protocol.RoleUser}, {Role: protocol.RoleAssistant}},
				State: protocol.SessionState{
					IsStreaming: true,
					Model:       &protocol.ModelRef{Provider: "anthropic", ID: "sonnet"},
				},
			},
			Resuming: 3,
		},
	}
	got := summarize(v)
	for _, want := range []string{"Connected", "*api(streaming) web", "api/default", "2 messages", "anthropic/sonnet", "streaming", "Resuming 3 events"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}

	if got := summarize(view.View{}); !strings.HasPrefix(got, "Disconnected") {
		t.Errorf("disconnected summary = %q", got)
	}
}

func TestPrintViews(t *testing.T) {
	views := make(chan view.View, 4)
	views <- view.View{Connected: true}
	views <- view.View{Connected: true}
	views <- view.View{Connected: false}
	close(views)

	var buf bytes.Buffer
	if err := printViews(context.Background(), &buf, views, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want duplicate view skipped, got %q", lines)
	}
}

func TestPrintViews_JSON(t *testing.T) {
	views := make(chan view.View, 2)
	views <- view.View{Connected: true, HomeDir: "/home/u"}
	views <- view.View{Connected: true, HomeDir: "/home/u"}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var buf bytes.Buffer
	if err := printViews(ctx, &buf, views, true); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(&buf)
	n := 0
	for dec.More() {
		var v view.View
		if err := dec.Decode(&v); err != nil {
			t.Fatal(err)
		}
		if v.HomeDir != "/home/u" {
			t.Errorf("homeDirectory = %q", v.HomeDir)
		}
		n++
	}
	if n != 2 {
		t.Errorf("decoded %d views, want 2", n)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PANES_HOME", t.TempDir())
	serverURL, metricsAddr = "wss://example.test/ws", "127.0.0.1:0"
	t.Cleanup(func() { serverURL, metricsAddr = "", "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "wss://example.test/ws" || cfg.MetricsAddr != "127.0.0.1:0" {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	serverURL = "http://example.test"
	if _, err := loadConfig(); err == nil {
		t.Error("want error for non-WebSocket scheme")
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "panes ") {
		t.Errorf("version output = %q", buf.String())
	}
}
