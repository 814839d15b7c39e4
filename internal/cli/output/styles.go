package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
	Path    lipgloss.Style
	Code    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds the style set bound to a lipgloss renderer, so color
// output follows that renderer's profile.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"}),
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Path:    r.NewStyle().Foreground(lipgloss.Color("14")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("13")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}
