package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dealflow/viz"
)

func (m Model) renderDashboardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(viz.RenderDashboard(viz.GenerateDashboardStats(m.stages, m.now())))
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderDashboardHelp())

	return s.String()
}

func (m Model) renderDashboardHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "g":
		m.viewMode = ViewBoard
	}

	return m, nil
}
