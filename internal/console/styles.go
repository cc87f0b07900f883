package console

import "github.com/charmbracelet/lipgloss"

var (
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	fileStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

var toastStyles = map[string]lipgloss.Style{
	"success": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
}
