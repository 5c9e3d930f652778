package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// 样式定义
var (
	// 边框样式
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// 标题样式
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	// valid=false 时标红
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func panel(doc Document) string {
	width := 0
	for _, f := range doc.Fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}

	var content strings.Builder
	for i, f := range doc.Fields {
		if i > 0 {
			content.WriteString("\n")
		}
		value := valueStyle.Render(f.Value)
		if f.Key == "valid" {
			if f.Value == "true" {
				value = successStyle.Render(f.Value)
			} else {
				value = errorStyle.Render(f.Value)
			}
		}
		content.WriteString(keyStyle.Width(width + 2).Render(f.Key))
		content.WriteString(value)
	}

	title := titleStyle.Render(doc.Title)
	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String()))
}
