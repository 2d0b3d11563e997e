// Package ui is the terminal presenter: a bubbletea model that renders a
// post's deck progressively and drives navigation from keys, the remote
// and clip playback.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#fbfaf7")
	LightForeground = lipgloss.Color("#1d2330")
	LightPrimary    = lipgloss.Color("#1d2330")
	LightAccent     = lipgloss.Color("#d9480f") // Burnt orange
	LightMuted      = lipgloss.Color("#9aa0a9")
	LightBorder     = lipgloss.Color("#d5d8dd")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#15171c")
	DarkForeground = lipgloss.Color("#eceff4")
	DarkPrimary    = lipgloss.Color("#ff922b") // Orange (flipped)
	DarkAccent     = lipgloss.Color("#ff922b")
	DarkMuted      = lipgloss.Color("#5c6370")
	DarkBorder     = lipgloss.Color("#3b4048")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e03131")
	Success     = lipgloss.Color("#2f9e44")
	Warning     = lipgloss.Color("#f59f00")
	Info        = lipgloss.Color("#1c7ed6")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG or POSTDECK_DARK_MODE, falling
// back to light.
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil {
			// 0-6 and 8 (dark grey) are dark backgrounds
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
		}
	}
	if os.Getenv("POSTDECK_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeFor resolves a configured theme name.
func ThemeFor(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header lipgloss.Style
	Footer lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Tag      lipgloss.Style

	// Deck
	SlideRule       lipgloss.Style
	MediaPane       lipgloss.Style
	ClipCurrent     lipgloss.Style
	ControlActive   lipgloss.Style
	ControlDisabled lipgloss.Style
	LinkHint        lipgloss.Style

	// Status
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Tag: lipgloss.NewStyle().
			Foreground(theme.Accent),

		SlideRule: lipgloss.NewStyle().
			Foreground(theme.Border).
			PaddingLeft(2),

		MediaPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		ClipCurrent: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		ControlActive: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		ControlDisabled: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Faint(true),

		LinkHint: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Underline(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderRule returns a horizontal rule labelled with text.
func (s Styles) RenderRule(label string, width int) string {
	line := "── " + label + " "
	if pad := width - lipgloss.Width(line) - 2; pad > 0 {
		line += strings.Repeat("─", pad)
	}
	return s.SlideRule.Render(line)
}
