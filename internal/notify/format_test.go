package notify

import (
	"testing"
	"time"
)

func TestFormatMode(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"backfill", "Backfill"},
		{"incremental", "Incremental sync"},
		{"", "Sync"},
		{"weird", "Sync"},
	}
	for _, tt := range tests {
		if got := FormatMode(tt.mode); got != tt.want {
			t.Errorf("FormatMode(%q) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{3200 * time.Millisecond, "3.2s"},
		{92 * time.Second, "1m32s"},
		{10 * time.Minute, "10m0s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now, "just now"},
		{"seconds", now.Add(-30 * time.Second), "30 sec ago"},
		{"one minute", now.Add(-70 * time.Second), "1 min ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 min ago"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.Add(-72 * time.Hour), "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeAgo(tt.t); got != tt.want {
				t.Errorf("TimeAgo = %q, want %q", got, tt.want)
			}
		})
	}
}
