// ABOUTME: Kanban board view for TUI
// ABOUTME: One column per stage; moves deals between stages and reorders the stages themselves
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEALFLOW PIPELINE"))
	s.WriteString("\n")

	if len(m.stages) == 0 {
		s.WriteString("No stages yet. Press a to add one.\n")
	} else {
		s.WriteString(m.renderColumns())
	}
	s.WriteString("\n")

	if deal, ok := m.selectedDeal(); ok {
		s.WriteString(m.renderNextActivity(deal))
		s.WriteString("\n")
	}
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderBoardHelp())

	return s.String()
}

func (m Model) columnWidth() int {
	if len(m.stages) == 0 {
		return 24
	}
	w := m.width/len(m.stages) - 4
	if w < 18 {
		w = 18
	}
	if w > 36 {
		w = 36
	}
	return w
}

func (m Model) renderColumns() string {
	width := m.columnWidth()
	now := m.now()

	columns := make([]string, 0, len(m.stages))
	for i, stage := range m.stages {
		var c strings.Builder

		total := decimal.Zero
		for _, d := range stage.Deals {
			total = total.Add(d.Amount)
		}
		c.WriteString(columnHeaderStyle.Render(truncate(stage.Name, width)))
		c.WriteString("\n")
		c.WriteString(dimStyle.Render(fmt.Sprintf("%d deals · %s", len(stage.Deals), total.StringFixed(0))))
		c.WriteString("\n\n")

		for j, deal := range stage.Deals {
			line := truncate(deal.Title, width)
			detail := truncate(fmt.Sprintf("%s %s · %s",
				deal.Amount.StringFixed(0), deal.Currency, notes.PreviewLabel(deal.Notes, now)), width)
			if i == m.col && j == m.row {
				c.WriteString(selectedCardStyle.Width(width).Render(line))
			} else {
				c.WriteString(cardStyle.Render(line))
			}
			c.WriteString("\n")
			c.WriteString(dimStyle.Render(detail))
			c.WriteString("\n")
		}

		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		columns = append(columns, style.Width(width).Render(c.String()))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m Model) renderNextActivity(deal models.Deal) string {
	next := pipeline.NextSchedule(deal, m.now())
	if next == nil {
		return dimStyle.Render(deal.Title + ": no open activities")
	}
	when := next.When().Local()
	label := "due"
	if when.Before(m.now()) {
		label = "overdue since"
	}
	return fmt.Sprintf("%s: next %s (%s %s)", deal.Title, next.ActivityName, label, when.Format("02 Jan 15:04"))
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"←/→ ↑/↓: Navigate",
		"H/L: Move deal",
		"</>: Move stage",
		"Enter: Open deal",
		"n: New deal",
		"a: Add stage",
		"r: Rename stage",
		"d/D: Delete deal/stage",
		"t: Agenda",
		"g: Dashboard",
		"R: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func (m Model) selectedStage() (models.Stage, bool) {
	if m.col < 0 || m.col >= len(m.stages) {
		return models.Stage{}, false
	}
	return m.stages[m.col], true
}

func (m Model) selectedDeal() (models.Deal, bool) {
	stage, ok := m.selectedStage()
	if !ok || m.row < 0 || m.row >= len(stage.Deals) {
		return models.Deal{}, false
	}
	return stage.Deals[m.row], true
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		if m.col > 0 {
			m.col--
			m.row = clamp(m.row, len(m.stages[m.col].Deals))
		}
	case "right", "l":
		if m.col < len(m.stages)-1 {
			m.col++
			m.row = clamp(m.row, len(m.stages[m.col].Deals))
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if stage, ok := m.selectedStage(); ok && m.row < len(stage.Deals)-1 {
			m.row++
		}

	case "H":
		return m.moveSelectedDeal(-1)
	case "L":
		return m.moveSelectedDeal(1)
	case "<":
		return m.moveSelectedStage(-1)
	case ">":
		return m.moveSelectedStage(1)

	case "enter":
		if deal, ok := m.selectedDeal(); ok {
			m.dealID = deal.ID
			m.scheduleRow = 0
			m.viewMode = ViewDetail
		}
	case "n":
		if stage, ok := m.selectedStage(); ok {
			return m.openInput(inputAddDeal, "Deal title in "+stage.Name, "")
		}
	case "a":
		return m.openInput(inputAddStage, "Stage name", "")
	case "r":
		if stage, ok := m.selectedStage(); ok {
			return m.openInput(inputRenameStage, "New stage name", stage.Name)
		}
	case "d":
		if deal, ok := m.selectedDeal(); ok {
			m.pending = deleteTarget{kind: deleteDeal, id: deal.ID, label: deal.Title}
			m.returnTo = ViewBoard
			m.viewMode = ViewConfirmDelete
		}
	case "D":
		if stage, ok := m.selectedStage(); ok {
			m.pending = deleteTarget{kind: deleteStage, id: stage.ID, label: stage.Name, deals: len(stage.Deals)}
			m.returnTo = ViewBoard
			m.viewMode = ViewConfirmDelete
		}
	case "t":
		m.agendaRow = 0
		m.viewMode = ViewAgenda
	case "g":
		m.viewMode = ViewDashboard
	case "R":
		board := m.board
		m.status = "Reloading…"
		return m, m.perform(func(ctx context.Context) (string, error) {
			if err := board.Reload(ctx); err != nil {
				return "", err
			}
			return "Pipeline reloaded", nil
		})
	}

	return m, nil
}

// moveSelectedDeal sends the selected deal to the neighbouring stage and follows it.
func (m Model) moveSelectedDeal(step int) (tea.Model, tea.Cmd) {
	if _, ok := m.selectedDeal(); !ok {
		return m, nil
	}
	target := m.col + step
	if target < 0 || target >= len(m.stages) {
		return m, nil
	}

	board := m.board
	fromID, index := m.stages[m.col].ID, m.row
	toID := m.stages[target].ID

	m.col = target
	m.row = len(m.stages[target].Deals)
	return m, m.perform(func(ctx context.Context) (string, error) {
		return board.MoveDeal(ctx, fromID, index, toID)
	})
}

func (m Model) moveSelectedStage(step int) (tea.Model, tea.Cmd) {
	from := m.col
	to := from + step
	if from >= len(m.stages) || to < 0 || to >= len(m.stages) {
		return m, nil
	}

	board := m.board
	name := m.stages[from].Name
	m.col = to
	return m, m.perform(func(ctx context.Context) (string, error) {
		if err := board.ReorderStages(ctx, from, to); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved stage %s", name), nil
	})
}
