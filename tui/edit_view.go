package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/dealflow/models"
)

type inputPurpose int

const (
	inputAddStage inputPurpose = iota
	inputRenameStage
	inputAddDeal
	inputAddNote
	inputAddSchedule
)

func (p inputPurpose) title() string {
	switch p {
	case inputAddStage:
		return "NEW STAGE"
	case inputRenameStage:
		return "RENAME STAGE"
	case inputAddDeal:
		return "NEW DEAL"
	case inputAddNote:
		return "NEW NOTE"
	case inputAddSchedule:
		return "SCHEDULE ACTIVITY"
	}
	return ""
}

func (m Model) openInput(purpose inputPurpose, placeholder, value string) (tea.Model, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 50
	ti.SetValue(value)

	m.input = ti
	m.purpose = purpose
	m.returnTo = m.viewMode
	m.viewMode = ViewInput
	return m, m.input.Focus()
}

func (m Model) renderInputView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.purpose.title()))
	s.WriteString("\n\n")
	s.WriteString("> ")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(m.renderInputHelp())

	return s.String()
}

func (m Model) renderInputHelp() string {
	help := []string{
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.viewMode = m.returnTo
		m.input.Blur()
		return m, nil
	case "enter":
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Blur()
	m.viewMode = m.returnTo

	board := m.board
	switch m.purpose {
	case inputAddStage:
		return m, m.perform(func(ctx context.Context) (string, error) {
			if _, err := board.AddStage(ctx, value); err != nil {
				return "", err
			}
			return "Added stage " + value, nil
		})

	case inputRenameStage:
		stage, ok := m.selectedStage()
		if !ok {
			return m, nil
		}
		return m, m.perform(func(ctx context.Context) (string, error) {
			if err := board.EditStageName(ctx, stage.ID, value); err != nil {
				return "", err
			}
			return fmt.Sprintf("Renamed %s to %s", stage.Name, value), nil
		})

	case inputAddDeal:
		stage, ok := m.selectedStage()
		if !ok {
			return m, nil
		}
		if value == "" {
			m.err = fmt.Errorf("deal title is required")
			return m, nil
		}
		m.row = len(stage.Deals)
		return m, m.perform(func(ctx context.Context) (string, error) {
			deal, err := board.AddDeal(ctx, stage.ID, models.Deal{Title: value, Currency: "THB"})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Added %s to %s", deal.Title, stage.Name), nil
		})

	case inputAddNote:
		dealID := m.dealID
		if value == "" {
			return m, nil
		}
		return m, m.perform(func(ctx context.Context) (string, error) {
			if _, err := board.AddNote(ctx, dealID, value, nil); err != nil {
				return "", err
			}
			return "Note added", nil
		})

	case inputAddSchedule:
		deal, ok := m.currentDeal()
		if !ok {
			return m, nil
		}
		due, activity, err := parseScheduleInput(value, time.Local)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m, m.perform(func(ctx context.Context) (string, error) {
			sched, err := board.AddSchedule(ctx, deal.ID, due, activity, deal.Salesperson, deal.CustomerName)
			if err != nil {
				return "", err
			}
			return "Scheduled " + sched.ActivityName, nil
		})
	}

	return m, nil
}

// parseScheduleInput splits "2024-03-11 14:00 Call back" into a due time and an
// activity name. The time of day is optional.
func parseScheduleInput(s string, loc *time.Location) (time.Time, string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, "", fmt.Errorf("due date is required")
	}

	if len(fields) >= 2 {
		if t, err := time.ParseInLocation("2006-01-02 15:04", fields[0]+" "+fields[1], loc); err == nil {
			return t, strings.Join(fields[2:], " "), nil
		}
	}
	t, err := time.ParseInLocation("2006-01-02", fields[0], loc)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid due date %q (use YYYY-MM-DD HH:MM)", fields[0])
	}
	return t, strings.Join(fields[1:], " "), nil
}
