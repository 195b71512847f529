// ABOUTME: MCP prompt handlers for reusable pipeline workflow templates
// ABOUTME: Provides deal-review and pipeline-review prompts built from the live board
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/harperreed/dealflow/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	board *pipeline.Board
	now   func() time.Time
}

func NewPromptHandlers(board *pipeline.Board) *PromptHandlers {
	return &PromptHandlers{board: board, now: time.Now}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "deal-review":
		return h.getDealReviewPrompt(request.Params.Arguments)
	case "pipeline-review":
		return h.getPipelineReviewPrompt()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getDealReviewPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	dealID, ok := args["deal_id"]
	if !ok || dealID == "" {
		return nil, fmt.Errorf("deal_id is required")
	}

	deal, stageID, err := h.board.Deal(dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}
	stage, err := h.board.Stage(stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stage: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Deal: %s\n", deal.Title))
	promptText.WriteString(fmt.Sprintf("Stage: %s\n", stage.Name))
	promptText.WriteString(fmt.Sprintf("Amount: %s %s\n", deal.Amount.StringFixed(2), deal.Currency))
	if deal.CustomerName != "" {
		promptText.WriteString(fmt.Sprintf("Customer: %s\n", deal.CustomerName))
	}
	if deal.Priority != "" {
		promptText.WriteString(fmt.Sprintf("Priority: %s\n", deal.Priority))
	}
	if deal.ExpectedClose != nil {
		promptText.WriteString(fmt.Sprintf("Expected Close: %s\n", deal.ExpectedClose.Format("2006-01-02")))
	}

	if len(deal.ActivitySchedules) > 0 {
		promptText.WriteString("\nActivities:\n")
		for _, s := range deal.ActivitySchedules {
			due := "no date"
			if when := s.When(); when != nil {
				due = when.Format("2006-01-02 15:04")
			}
			promptText.WriteString(fmt.Sprintf("- [%s] %s (%s)\n", s.State(), s.ActivityName, due))
		}
	}

	if frags := notes.Decode(deal.Notes); len(frags) > 0 {
		promptText.WriteString("\nNotes:\n")
		for _, f := range frags {
			if f.DateText != "" {
				promptText.WriteString(fmt.Sprintf("[%s] ", f.DateText))
			}
			promptText.WriteString(f.Text + "\n")
		}
	}

	promptText.WriteString("\nPlease review this deal and provide:")
	promptText.WriteString("\n1. Where it stands and what is blocking it")
	promptText.WriteString("\n2. The next activity to schedule")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review of deal: %s", deal.Title),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getPipelineReviewPrompt() (*mcp.GetPromptResult, error) {
	stats := viz.GenerateDashboardStats(h.board.Stages(), h.now())

	var promptText strings.Builder
	promptText.WriteString(viz.RenderDashboard(stats))
	promptText.WriteString("\nPlease analyze this pipeline and suggest which deals need attention this week.")

	return &mcp.GetPromptResult{
		Description: "Weekly pipeline review",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
