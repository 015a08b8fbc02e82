package engine

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// Color palette
var (
	ColorSuccess = lipgloss.Color("#00D787") // Green
	ColorError   = lipgloss.Color("#FF5F87") // Pink
	ColorWarning = lipgloss.Color("#FFAF00") // Yellow
	ColorInfo    = lipgloss.Color("#5FAFFF") // Blue
	ColorMuted   = lipgloss.Color("#888888") // Mid gray (readable)
	ColorAccent  = lipgloss.Color("#AF87FF") // Purple
)

// Text styles
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleBold    = lipgloss.NewStyle().Bold(true)
	StyleTitle   = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
)

// StyleCommandIcon is the ○ symbol used in command headers.
var StyleCommandIcon = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).SetString("○")

// StyleToolArrow is the dispatch marker for batch lines.
var StyleToolArrow = lipgloss.NewStyle().Foreground(ColorMuted).SetString("▶")

// Progress bar styles
var (
	StyleProgressFilled = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleProgressEmpty  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// GetTerminalWidth returns the current terminal width, or a default fallback.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 {
		return 80 // sensible default
	}
	return width
}

// BoxStyle creates a box style with the given border color and responsive width.
func BoxStyle(borderColor lipgloss.Color) lipgloss.Style {
	width := GetTerminalWidth() - 2 // leave margin
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width)
}

// HeaderBox returns a header box style with responsive width.
func HeaderBox() lipgloss.Style { return BoxStyle(ColorInfo) }

// SuccessBox returns a success box style with responsive width.
func SuccessBox() lipgloss.Style { return BoxStyle(ColorSuccess) }

// ErrorBox returns an error box style with responsive width.
func ErrorBox() lipgloss.Style { return BoxStyle(ColorError) }

// WarningBox returns a warning box style with responsive width.
func WarningBox() lipgloss.Style { return BoxStyle(ColorWarning) }
