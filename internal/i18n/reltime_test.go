package i18n

import (
	"testing"
	"time"
)

func TestAgo(t *testing.T) {
	Init("en")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		since time.Time
		want  string
	}{
		{time.Time{}, ""},
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-72 * time.Hour), "3d ago"},
		{now.Add(-60 * 24 * time.Hour), "2mo ago"},
		{now.Add(-800 * 24 * time.Hour), "2y ago"},
	}
	for _, tt := range tests {
		if got := Ago(tt.since, now); got != tt.want {
			t.Errorf("Ago(%v before) = %q, want %q", now.Sub(tt.since), got, tt.want)
		}
	}
}
