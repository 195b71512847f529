// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Confirms removal of a deal, or of a stage together with all of its deals
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealflow/models"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

type deleteKind int

const (
	deleteDeal deleteKind = iota
	deleteStage
)

type deleteTarget struct {
	kind  deleteKind
	id    string
	label string
	deals int
}

func (m Model) renderConfirmDeleteView() string {
	var s strings.Builder

	s.WriteString(warningStyle.Render("⚠ DELETE CONFIRMATION"))
	s.WriteString("\n\n")

	switch m.pending.kind {
	case deleteDeal:
		s.WriteString(fmt.Sprintf("Delete deal %q?\n", m.pending.label))
		s.WriteString("Its activities are deleted with it.")
	case deleteStage:
		s.WriteString(fmt.Sprintf("Delete stage %q?\n", m.pending.label))
		s.WriteString(fmt.Sprintf("All %d deals in it are deleted too.", m.pending.deals))
	}
	s.WriteString("\n\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		confirmButtonStyle.Render("y: Delete"),
		cancelButtonStyle.Render("n: Cancel"),
	))

	return confirmBoxStyle.Render(s.String()) + "\n" + m.renderStatus()
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		target := m.pending
		board := m.board
		m.pending = deleteTarget{}
		m.viewMode = ViewBoard
		m.dealID = ""

		if target.kind == deleteStage {
			return m, m.perform(func(ctx context.Context) (string, error) {
				// Already confirmed on screen.
				confirmed := func(models.Stage) bool { return true }
				if err := board.DeleteStage(ctx, target.id, confirmed); err != nil {
					return "", err
				}
				return "Deleted stage " + target.label, nil
			})
		}
		return m, m.perform(func(ctx context.Context) (string, error) {
			if err := board.DeleteDeal(ctx, target.id); err != nil {
				return "", err
			}
			return "Deleted deal " + target.label, nil
		})

	case "n", "N", "esc":
		m.pending = deleteTarget{}
		m.viewMode = m.returnTo
	}

	return m, nil
}
