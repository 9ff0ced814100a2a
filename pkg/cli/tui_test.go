package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

func TestDetection(t *testing.T) {
	s := NewStyles(DefaultTheme)
	line := s.Detection(kws.Event{ID: "abc", Label: "yes", Score: 1020, TimeMs: 1500})
	for _, want := range []string{"yes", "score 1020", "00:01.500", "abc"} {
		if !strings.Contains(line, want) {
			t.Errorf("Detection line %q missing %q", line, want)
		}
	}

	ignored := s.IgnoredDetection("_silence_", 900, 20)
	if !strings.Contains(ignored, "_silence_") || !strings.Contains(ignored, "ignored") {
		t.Errorf("IgnoredDetection = %q", ignored)
	}
}

func TestScoreBar(t *testing.T) {
	s := NewStyles(DefaultTheme)
	tests := []struct {
		name   string
		sum    uint32
		filled int
	}{
		{"empty", 0, 0},
		{"half", 500, 5},
		{"full", 1000, 10},
		{"over", 5000, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := s.ScoreBar("yes", tt.sum, 800, 1000, 10)
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("filled = %d, want %d in %q", got, tt.filled, bar)
			}
			if !strings.HasPrefix(bar, "yes") {
				t.Errorf("bar should start with the label: %q", bar)
			}
		})
	}

	if bar := s.ScoreBar("no", 100, 800, 1000, 10); !strings.Contains(bar, "│") {
		t.Errorf("threshold mark missing: %q", bar)
	}
}

func TestBox(t *testing.T) {
	s := NewStyles(DefaultTheme)
	out := s.Box("stats", []string{"frames 10", strings.Repeat("x", 100)}, 30)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 30 {
			t.Errorf("line %d width = %d, want 30: %q", i, w, line)
		}
	}
	if !strings.Contains(lines[2], "…") {
		t.Errorf("long line should be truncated: %q", lines[2])
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"日本語", 4, "日本"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.s, tt.width); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}
