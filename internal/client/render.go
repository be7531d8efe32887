package client

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	userColor  = lipgloss.Color("#2196F3")
	botColor   = lipgloss.Color("#8BC34A")
	errorColor = lipgloss.Color("#e53935")
	mutedColor = lipgloss.Color("#6b7280")
)

// Renderer formats transcript entries for a terminal.
type Renderer struct {
	plain bool
	width int

	label  map[Origin]lipgloss.Style
	bubble map[Origin]lipgloss.Style
}

func NewRenderer(plain bool, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	r := &Renderer{plain: plain, width: width}
	if plain {
		return r
	}

	inner := width - 4
	r.label = map[Origin]lipgloss.Style{
		OriginUser:  lipgloss.NewStyle().Bold(true).Foreground(userColor),
		OriginBot:   lipgloss.NewStyle().Bold(true).Foreground(botColor),
		OriginError: lipgloss.NewStyle().Bold(true).Foreground(errorColor),
	}
	r.bubble = map[Origin]lipgloss.Style{
		OriginUser: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(userColor).
			Padding(0, 1).
			Width(inner),
		OriginBot: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(botColor).
			Padding(0, 1).
			Width(inner),
		OriginError: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(errorColor).
			Foreground(errorColor).
			Padding(0, 1).
			Width(inner),
	}
	return r
}

func labelFor(o Origin) string {
	switch o {
	case OriginUser:
		return "You"
	case OriginBot:
		return "Bot"
	default:
		return "Error"
	}
}

func (r *Renderer) Render(e Entry) string {
	if r.plain {
		return labelFor(e.Origin) + ": " + e.Text
	}
	label := r.label[e.Origin].Render(labelFor(e.Origin))
	return lipgloss.JoinVertical(lipgloss.Left, label, r.bubble[e.Origin].Render(e.Text))
}

func (r *Renderer) RenderAll(entries []Entry) string {
	if len(entries) == 0 {
		return r.Hint("No messages yet.")
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = r.Render(e)
	}
	return strings.Join(parts, "\n")
}

// Hint renders secondary text such as prompts and status lines.
func (r *Renderer) Hint(text string) string {
	if r.plain {
		return text
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render(text)
}
