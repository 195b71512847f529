// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban board over the optimistic pipeline, with deal detail, agenda and dashboard views
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewDetail
	ViewInput
	ViewConfirmDelete
	ViewDashboard
	ViewAgenda
)

// Model is the main bubbletea model
type Model struct {
	ctx     context.Context
	board   *pipeline.Board
	notices Notices
	now     func() time.Time

	viewMode ViewMode

	// Board view state. stages is the snapshot the view renders.
	stages []models.Stage
	col    int
	row    int

	// Detail view state
	dealID      string
	scheduleRow int

	// Input view state
	input    textinput.Model
	purpose  inputPurpose
	returnTo ViewMode

	// Delete confirmation state
	pending deleteTarget

	// Agenda view state
	agendaRow int

	// UI state
	status string
	err    error
	width  int
	height int
}

// NewModel creates a new TUI model over a loaded board. notices may be nil.
func NewModel(ctx context.Context, board *pipeline.Board, notices Notices) Model {
	m := Model{
		ctx:      ctx,
		board:    board,
		notices:  notices,
		now:      time.Now,
		viewMode: ViewBoard,
		width:    120,
		height:   30,
	}
	m.refresh()
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, board *pipeline.Board, notices Notices) error {
	p := tea.NewProgram(NewModel(ctx, board, notices), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Notices carries board notifications into the UI loop.
type Notices chan string

func NewNotices() Notices {
	return make(Notices, 16)
}

// Notify drops the message when nobody is draining the channel.
func (n Notices) Notify(msg string) {
	select {
	case n <- msg:
	default:
	}
}

type noticeMsg string

// opResultMsg reports a finished board operation.
type opResultMsg struct {
	status string
	err    error
}

func waitForNotice(n Notices) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-n
		if !ok {
			return nil
		}
		return noticeMsg(msg)
	}
}

// perform runs a board operation off the UI goroutine.
func (m Model) perform(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return opResultMsg{status: status, err: err}
	}
}

// refresh takes a new snapshot of the board and keeps the cursors in range.
func (m *Model) refresh() {
	m.stages = m.board.Stages()
	m.col = clamp(m.col, len(m.stages))
	if m.col < len(m.stages) {
		m.row = clamp(m.row, len(m.stages[m.col].Deals))
	} else {
		m.row = 0
	}
	if m.dealID != "" {
		if deal, ok := m.currentDeal(); ok {
			m.scheduleRow = clamp(m.scheduleRow, len(deal.ActivitySchedules))
		} else if m.viewMode == ViewDetail {
			m.viewMode = ViewBoard
			m.dealID = ""
		}
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m Model) Init() tea.Cmd {
	if m.notices != nil {
		return waitForNotice(m.notices)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case opResultMsg:
		m.refresh()
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			if msg.status != "" {
				m.status = msg.status
			}
		}
		return m, nil
	case noticeMsg:
		m.status = string(msg)
		m.err = nil
		return m, waitForNotice(m.notices)
	}

	if m.viewMode == ViewInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBoard:
		return m.renderBoardView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewInput:
		return m.renderInputView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewDashboard:
		return m.renderDashboardView()
	case ViewAgenda:
		return m.renderAgendaView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Typed text must reach the input untouched.
	if m.viewMode == ViewInput {
		return m.handleInputKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	case ViewAgenda:
		return m.handleAgendaKeys(msg)
	}

	return m, nil
}

// renderStatus shows the last notification or error under every view.
func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("✗ " + m.err.Error())
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	return ""
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(14)
)
