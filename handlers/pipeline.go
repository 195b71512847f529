// ABOUTME: Pipeline MCP tool handlers
// ABOUTME: Implements list_pipeline, move_deal, add_stage, rename_stage and reorder_stages tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
)

type PipelineHandlers struct {
	board *pipeline.Board
	now   func() time.Time
}

func NewPipelineHandlers(board *pipeline.Board) *PipelineHandlers {
	return &PipelineHandlers{board: board, now: time.Now}
}

type DealSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Customer     string  `json:"customer,omitempty"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	Notes        string  `json:"notes_preview,omitempty"`
	NextActivity string  `json:"next_activity,omitempty"`
	NextDue      *string `json:"next_due,omitempty"`
}

type StageSummary struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Order int           `json:"order"`
	Total string        `json:"total"`
	Deals []DealSummary `json:"deals"`
}

type ListPipelineInput struct {
	Stage string `json:"stage,omitempty" jsonschema:"Only list this stage (id or name)"`
}

type ListPipelineOutput struct {
	Stages []StageSummary `json:"stages"`
}

func (h *PipelineHandlers) summarizeDeal(d models.Deal) DealSummary {
	s := DealSummary{
		ID:       d.ID,
		Title:    d.Title,
		Customer: d.CustomerName,
		Amount:   d.Amount.StringFixed(2),
		Currency: d.Currency,
		Priority: string(d.Priority),
		Notes:    notes.PreviewLabel(d.Notes, h.now()),
	}
	if next := pipeline.NextSchedule(d, h.now()); next != nil {
		s.NextActivity = next.ActivityName
		if when := next.When(); when != nil {
			due := when.Format(time.RFC3339)
			s.NextDue = &due
		}
	}
	return s
}

func (h *PipelineHandlers) summarizeStage(stage models.Stage) StageSummary {
	total := decimal.Zero
	deals := make([]DealSummary, 0, len(stage.Deals))
	for _, d := range stage.Deals {
		total = total.Add(d.Amount)
		deals = append(deals, h.summarizeDeal(d))
	}
	return StageSummary{
		ID:    stage.ID,
		Name:  stage.Name,
		Order: stage.Order,
		Total: total.StringFixed(2),
		Deals: deals,
	}
}

func (h *PipelineHandlers) ListPipeline(_ context.Context, request *mcp.CallToolRequest, input ListPipelineInput) (*mcp.CallToolResult, ListPipelineOutput, error) {
	if input.Stage != "" {
		stage, err := findStage(h.board, input.Stage)
		if err != nil {
			return nil, ListPipelineOutput{}, err
		}
		return nil, ListPipelineOutput{Stages: []StageSummary{h.summarizeStage(stage)}}, nil
	}

	stages := h.board.Stages()
	out := ListPipelineOutput{Stages: make([]StageSummary, 0, len(stages))}
	for _, s := range stages {
		out.Stages = append(out.Stages, h.summarizeStage(s))
	}
	return nil, out, nil
}

// findStage accepts a stage id or a stage name.
func findStage(board *pipeline.Board, ref string) (models.Stage, error) {
	stage, err := board.FindStage(ref)
	if err != nil {
		return models.Stage{}, fmt.Errorf("stage %q: %w", ref, err)
	}
	return stage, nil
}

type MoveDealInput struct {
	DealID  string `json:"deal_id" jsonschema:"Deal ID (required)"`
	ToStage string `json:"to_stage" jsonschema:"Target stage id or name (required)"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

func (h *PipelineHandlers) MoveDeal(ctx context.Context, request *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, MessageOutput, error) {
	if input.DealID == "" {
		return nil, MessageOutput{}, fmt.Errorf("deal_id is required")
	}
	if input.ToStage == "" {
		return nil, MessageOutput{}, fmt.Errorf("to_stage is required")
	}

	fromID, index, err := h.board.DealPosition(input.DealID)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("deal %q: %w", input.DealID, err)
	}
	to, err := findStage(h.board, input.ToStage)
	if err != nil {
		return nil, MessageOutput{}, err
	}
	deal, _, err := h.board.Deal(input.DealID)
	if err != nil {
		return nil, MessageOutput{}, err
	}

	msg, err := h.board.MoveDeal(ctx, fromID, index, to.ID)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}
	if msg == "" {
		msg = fmt.Sprintf("%q is already in %s.", deal.Title, to.Name)
	}
	return nil, MessageOutput{Message: msg}, nil
}

type AddStageInput struct {
	Name string `json:"name" jsonschema:"Stage name (required, unique)"`
}

type StageOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *PipelineHandlers) AddStage(ctx context.Context, request *mcp.CallToolRequest, input AddStageInput) (*mcp.CallToolResult, StageOutput, error) {
	id, err := h.board.AddStage(ctx, input.Name)
	if err != nil {
		return nil, StageOutput{}, fmt.Errorf("failed to add stage: %w", err)
	}
	stage, err := h.board.Stage(id)
	if err != nil {
		return nil, StageOutput{}, err
	}
	return nil, StageOutput{ID: stage.ID, Name: stage.Name}, nil
}

type RenameStageInput struct {
	Stage string `json:"stage" jsonschema:"Stage id or current name (required)"`
	Name  string `json:"name" jsonschema:"New stage name (required)"`
}

func (h *PipelineHandlers) RenameStage(ctx context.Context, request *mcp.CallToolRequest, input RenameStageInput) (*mcp.CallToolResult, StageOutput, error) {
	stage, err := findStage(h.board, input.Stage)
	if err != nil {
		return nil, StageOutput{}, err
	}
	if err := h.board.EditStageName(ctx, stage.ID, input.Name); err != nil {
		return nil, StageOutput{}, fmt.Errorf("failed to rename stage: %w", err)
	}
	renamed, err := h.board.Stage(stage.ID)
	if err != nil {
		return nil, StageOutput{}, err
	}
	return nil, StageOutput{ID: renamed.ID, Name: renamed.Name}, nil
}

type ReorderStagesInput struct {
	Stage    string `json:"stage" jsonschema:"Stage id or name to move (required)"`
	Position int    `json:"position" jsonschema:"New zero-based position"`
}

type StageOrderOutput struct {
	Stages []string `json:"stages"`
}

func (h *PipelineHandlers) ReorderStages(ctx context.Context, request *mcp.CallToolRequest, input ReorderStagesInput) (*mcp.CallToolResult, StageOrderOutput, error) {
	stage, err := findStage(h.board, input.Stage)
	if err != nil {
		return nil, StageOrderOutput{}, err
	}

	stages := h.board.Stages()
	if input.Position < 0 || input.Position >= len(stages) {
		return nil, StageOrderOutput{}, fmt.Errorf("position must be between 0 and %d", len(stages)-1)
	}
	from := 0
	for i, s := range stages {
		if s.ID == stage.ID {
			from = i
			break
		}
	}

	// The local order is kept even when some saves fail.
	reorderErr := h.board.ReorderStages(ctx, from, input.Position)

	var out StageOrderOutput
	for _, s := range h.board.Stages() {
		out.Stages = append(out.Stages, s.Name)
	}
	if reorderErr != nil {
		return nil, out, fmt.Errorf("stage order changed locally but was not fully saved: %w", reorderErr)
	}
	return nil, out, nil
}
