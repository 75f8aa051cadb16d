package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/stride/internal/tasks"
)

const (
	accent = lipgloss.Color("#7D56F4")
	green  = lipgloss.Color("#04B575")
	red    = lipgloss.Color("#FF0000")
	orange = lipgloss.Color("#FFA500")
	grey   = lipgloss.Color("#626262")
	white  = lipgloss.Color("#FFFFFF")
)

var styles = NewPalette(accent, green, red, orange, grey)

// interface Painter colors ad-hoc text such as tempo badges and links
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette holds the styles shared by every view
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

var _ Painter = (*Palette)(nil)

func NewPalette(title, ok, err, warn, help lipgloss.Color) *Palette {
	return &Palette{
		title: NewBold(title).MarginBottom(1),
		ok:    NewBold(ok),
		err:   NewBold(err),
		warn:  NewStyle(warn),
		help:  NewEm(help),
	}
}

func (p *Palette) On(text string, bg lipgloss.Color) string {
	return lipgloss.NewStyle().Background(bg).Foreground(white).Padding(0, 1).Render(text)
}

func (p *Palette) As(text string, fg lipgloss.Color) string {
	return NewStyle(fg).Render(text)
}

// windowBadge renders a tempo window as a highlighted label.
func windowBadge(p Painter, w tasks.Window) string {
	return p.On(w.String()+" BPM", accent)
}

func NewStyle(fg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(fg)
}

func NewBold(fg lipgloss.Color) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg lipgloss.Color) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
