// ABOUTME: Activity schedule MCP tool handlers
// ABOUTME: Implements add_schedule, toggle_schedule and next_activity tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ScheduleHandlers struct {
	board *pipeline.Board
}

func NewScheduleHandlers(board *pipeline.Board) *ScheduleHandlers {
	return &ScheduleHandlers{board: board}
}

type ScheduleOutput struct {
	ID           string  `json:"id"`
	DealID       string  `json:"deal_id"`
	ActivityName string  `json:"activity_name"`
	DueAt        *string `json:"due_at,omitempty"`
	Salesperson  string  `json:"salesperson,omitempty"`
	Completed    bool    `json:"completed"`
}

func scheduleToOutput(s models.ActivitySchedule) ScheduleOutput {
	out := ScheduleOutput{
		ID:           s.ID,
		DealID:       s.DealID,
		ActivityName: s.ActivityName,
		Salesperson:  s.Salesperson,
		Completed:    s.Completed,
	}
	if when := s.When(); when != nil {
		due := when.Format(time.RFC3339)
		out.DueAt = &due
	}
	return out
}

type AddScheduleInput struct {
	DealID      string `json:"deal_id" jsonschema:"Deal ID (required)"`
	DueAt       string `json:"due_at" jsonschema:"Due time in ISO 8601 format (required)"`
	Activity    string `json:"activity" jsonschema:"What needs to happen"`
	Salesperson string `json:"salesperson,omitempty" jsonschema:"Who owns the activity"`
}

func (h *ScheduleHandlers) AddSchedule(ctx context.Context, request *mcp.CallToolRequest, input AddScheduleInput) (*mcp.CallToolResult, ScheduleOutput, error) {
	if input.DealID == "" {
		return nil, ScheduleOutput{}, fmt.Errorf("deal_id is required")
	}
	if input.DueAt == "" {
		return nil, ScheduleOutput{}, pipeline.ErrDueDateRequired
	}
	due, err := time.Parse(time.RFC3339, input.DueAt)
	if err != nil {
		return nil, ScheduleOutput{}, fmt.Errorf("invalid due_at format (use ISO 8601/RFC3339): %w", err)
	}

	deal, _, err := h.board.Deal(input.DealID)
	if err != nil {
		return nil, ScheduleOutput{}, fmt.Errorf("deal %q: %w", input.DealID, err)
	}

	sched, err := h.board.AddSchedule(ctx, deal.ID, due, input.Activity, input.Salesperson, deal.CustomerName)
	if err != nil {
		return nil, ScheduleOutput{}, fmt.Errorf("failed to add schedule: %w", err)
	}
	return nil, scheduleToOutput(sched), nil
}

type ToggleScheduleInput struct {
	DealID     string `json:"deal_id" jsonschema:"Deal ID (required)"`
	ScheduleID string `json:"schedule_id" jsonschema:"Schedule ID (required)"`
}

type ToggleScheduleOutput struct {
	ScheduleID string `json:"schedule_id"`
	Completed  bool   `json:"completed"`
}

func (h *ScheduleHandlers) ToggleSchedule(ctx context.Context, request *mcp.CallToolRequest, input ToggleScheduleInput) (*mcp.CallToolResult, ToggleScheduleOutput, error) {
	completed, err := h.board.ToggleComplete(ctx, input.DealID, input.ScheduleID)
	if err != nil {
		return nil, ToggleScheduleOutput{}, fmt.Errorf("failed to toggle schedule: %w", err)
	}
	return nil, ToggleScheduleOutput{ScheduleID: input.ScheduleID, Completed: completed}, nil
}

type NextActivityInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type NextActivityOutput struct {
	Found    bool            `json:"found"`
	Schedule *ScheduleOutput `json:"schedule,omitempty"`
}

func (h *ScheduleHandlers) NextActivity(_ context.Context, request *mcp.CallToolRequest, input NextActivityInput) (*mcp.CallToolResult, NextActivityOutput, error) {
	next, err := h.board.NextScheduleFor(input.DealID)
	if err != nil {
		return nil, NextActivityOutput{}, fmt.Errorf("deal %q: %w", input.DealID, err)
	}
	if next == nil {
		return nil, NextActivityOutput{}, nil
	}
	out := scheduleToOutput(*next)
	return nil, NextActivityOutput{Found: true, Schedule: &out}, nil
}
