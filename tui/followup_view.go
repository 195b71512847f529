// ABOUTME: TUI agenda of open activities
// ABOUTME: Lists every incomplete scheduled activity across deals, most urgent first
package tui

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

type agendaItem struct {
	when     time.Time
	activity string
	dealID   string
	deal     string
	stage    string
}

func (m Model) agendaItems() []agendaItem {
	var items []agendaItem
	for _, stage := range m.stages {
		for _, deal := range stage.Deals {
			for _, sched := range deal.ActivitySchedules {
				if sched.Completed {
					continue
				}
				when := sched.When()
				if when == nil {
					continue
				}
				items = append(items, agendaItem{
					when:     *when,
					activity: sched.ActivityName,
					dealID:   deal.ID,
					deal:     deal.Title,
					stage:    stage.Name,
				})
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].when.Before(items[j].when) })
	return items
}

func (m Model) renderAgendaView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("AGENDA"))
	s.WriteString("\n")
	s.WriteString(m.renderAgendaTable())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderAgendaHelp())

	return s.String()
}

func (m Model) renderAgendaTable() string {
	items := m.agendaItems()
	if len(items) == 0 {
		return "No open activities\n"
	}

	columns := []table.Column{
		{Title: "", Width: 3},
		{Title: "Due", Width: 17},
		{Title: "Activity", Width: 30},
		{Title: "Deal", Width: 25},
		{Title: "Stage", Width: 16},
	}

	now := m.now()
	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		indicator := "🟢"
		switch {
		case it.when.Before(now):
			indicator = "🔴"
		case it.when.Before(now.Add(24 * time.Hour)):
			indicator = "🟡"
		}
		rows = append(rows, table.Row{
			indicator,
			it.when.Local().Format("02 Jan 2006 15:04"),
			it.activity,
			it.deal,
			it.stage,
		})
	}

	height := m.height - 10
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	if m.agendaRow < len(rows) {
		t.SetCursor(m.agendaRow)
	}

	return t.View()
}

func (m Model) renderAgendaHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Enter: Open deal",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleAgendaKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.agendaItems()

	switch msg.String() {
	case "esc", "t":
		m.viewMode = ViewBoard
	case "up", "k":
		if m.agendaRow > 0 {
			m.agendaRow--
		}
	case "down", "j":
		if m.agendaRow < len(items)-1 {
			m.agendaRow++
		}
	case "enter":
		if m.agendaRow < len(items) {
			m.dealID = items[m.agendaRow].dealID
			m.scheduleRow = 0
			m.viewMode = ViewDetail
		}
	}

	return m, nil
}
