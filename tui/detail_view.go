package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
)

func (m Model) currentDeal() (models.Deal, bool) {
	for _, s := range m.stages {
		for _, d := range s.Deals {
			if d.ID == m.dealID {
				return d, true
			}
		}
	}
	return models.Deal{}, false
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	deal, ok := m.currentDeal()
	if !ok {
		return "Deal not found\n\n" + m.renderDetailHelp()
	}

	s.WriteString(titleStyle.Render("DEAL: " + deal.Title))
	s.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		s.WriteString(labelStyle.Render(label))
		s.WriteString(value)
		s.WriteString("\n")
	}
	field("Stage", deal.Stage)
	field("Customer", deal.CustomerName)
	field("Amount", deal.Amount.StringFixed(2)+" "+deal.Currency)
	if deal.Priority != models.PriorityNone && deal.Priority != "" {
		field("Priority", string(deal.Priority))
	}
	field("Salesperson", deal.Salesperson)
	field("Contact", deal.Contact)
	field("PO", deal.PONumber)

	s.WriteString("\n")
	s.WriteString(columnHeaderStyle.Render("Activities"))
	s.WriteString("\n")
	if len(deal.ActivitySchedules) == 0 {
		s.WriteString(dimStyle.Render("  none"))
		s.WriteString("\n")
	}
	now := m.now()
	next := pipeline.NextSchedule(deal, now)
	for i, sched := range deal.ActivitySchedules {
		check := "[ ]"
		if sched.Completed {
			check = "[x]"
		}
		due := "no date"
		if when := sched.When(); when != nil {
			due = when.Local().Format("02 Jan 2006 15:04")
		}
		marker := " "
		if next != nil && next.ID == sched.ID {
			marker = "→"
		}
		line := fmt.Sprintf("%s %s %s  %s", marker, check, due, sched.ActivityName)
		if i == m.scheduleRow {
			s.WriteString(selectedCardStyle.Render(line))
		} else {
			s.WriteString(line)
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(columnHeaderStyle.Render("Notes · " + notes.PreviewLabel(deal.Notes, now)))
	s.WriteString("\n")
	for _, frag := range notes.Decode(deal.Notes) {
		if !frag.HasContent() {
			continue
		}
		date := frag.DateText
		if date == "" {
			date = "undated"
		}
		s.WriteString(dimStyle.Render(date))
		s.WriteString("\n")
		s.WriteString(frag.Text)
		s.WriteString("\n")
		for _, a := range frag.Attachments {
			s.WriteString("📎 " + a.Name + "\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"↑/↓: Select activity",
		"x: Toggle done",
		"s: Schedule activity",
		"N: Add note",
		"d: Delete deal",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	deal, ok := m.currentDeal()

	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewBoard
		m.dealID = ""
		return m, nil
	}
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.scheduleRow > 0 {
			m.scheduleRow--
		}
	case "down", "j":
		if m.scheduleRow < len(deal.ActivitySchedules)-1 {
			m.scheduleRow++
		}
	case "x", " ":
		if m.scheduleRow >= len(deal.ActivitySchedules) {
			return m, nil
		}
		board := m.board
		dealID, schedID := deal.ID, deal.ActivitySchedules[m.scheduleRow].ID
		return m, m.perform(func(ctx context.Context) (string, error) {
			completed, err := board.ToggleComplete(ctx, dealID, schedID)
			if err != nil {
				return "", err
			}
			if completed {
				return "Activity done", nil
			}
			return "Activity reopened", nil
		})
	case "s":
		return m.openInput(inputAddSchedule, "YYYY-MM-DD HH:MM activity", "")
	case "N":
		return m.openInput(inputAddNote, "Note", "")
	case "d":
		m.pending = deleteTarget{kind: deleteDeal, id: deal.ID, label: deal.Title}
		m.returnTo = ViewDetail
		m.viewMode = ViewConfirmDelete
	}

	return m, nil
}
