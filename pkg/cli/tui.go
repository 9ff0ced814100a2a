package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// Theme defines the terminal color scheme.
type Theme struct {
	Primary lipgloss.Color // detections, bars over threshold
	Warn    lipgloss.Color // ignored detections
	Dim     lipgloss.Color // help text, empty bar cells
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Ignored lipgloss.Style
	Bar     lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Ignored: lipgloss.NewStyle().Foreground(t.Warn),
		Bar:     lipgloss.NewStyle().Foreground(t.Primary),
		Border:  lipgloss.NewStyle().Foreground(t.Primary),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Detection renders one detection line:
//
//	▶ yes        score 1020   at 00:01.200 3f2c...
func (s Styles) Detection(ev kws.Event) string {
	return fmt.Sprintf("%s %s %s %s",
		s.Label.Render("▶ "+padRight(ev.Label, 10)),
		fmt.Sprintf("score %-6d", ev.Score),
		s.Help.Render("at "+FormatOffset(ev.TimeMs)),
		s.Help.Render(ev.ID),
	)
}

// IgnoredDetection renders a detection that the label filter dropped.
func (s Styles) IgnoredDetection(label string, score uint32, timeMs uint64) string {
	return s.Ignored.Render(fmt.Sprintf("· %s score %d at %s (ignored)",
		padRight(label, 10), score, FormatOffset(timeMs)))
}

// ScoreBar renders a moving sum as a bar of width cells, scaled to full
// and marked where threshold lies. Sums above threshold use the Bar
// style.
func (s Styles) ScoreBar(label string, sum, threshold, full uint32, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	mark := -1
	if full > 0 {
		filled = int(uint64(min(sum, full)) * uint64(width) / uint64(full))
		mark = int(uint64(min(threshold, full)) * uint64(width) / uint64(full))
	}
	var b strings.Builder
	for i := range width {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == mark:
			b.WriteString("│")
		default:
			b.WriteString("·")
		}
	}
	bar := b.String()
	if sum > threshold {
		bar = s.Bar.Render(bar)
	} else {
		bar = s.Help.Render(bar)
	}
	return fmt.Sprintf("%s %s %d", padRight(label, 10), bar, sum)
}

// Box renders lines inside a rounded border with an embedded title.
func (s Styles) Box(title string, lines []string, width int) string {
	bc := s.Border
	titleText := s.Title.Render(title)
	inner := width - 4

	out := make([]string, 0, len(lines)+2)
	out = append(out, bc.Render("╭─")+titleText+
		bc.Render(strings.Repeat("─", max(0, width-3-lipgloss.Width(titleText)))+"╮"))
	for _, text := range lines {
		if inner > 1 && lipgloss.Width(text) > inner {
			text = truncateString(text, inner-1) + "…"
		}
		out = append(out, bc.Render("│")+" "+text+
			strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))+" "+bc.Render("│"))
	}
	out = append(out, bc.Render("╰"+strings.Repeat("─", max(0, width-2))+"╯"))
	return strings.Join(out, "\n")
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

// truncateString truncates s to the given display width, handling
// multi-byte characters.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}
