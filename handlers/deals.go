// ABOUTME: Deal note MCP tool handler
// ABOUTME: Implements add_deal_note, appending a dated fragment to the deal's note history
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/dealflow/notes"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	board *pipeline.Board
}

func NewDealHandlers(board *pipeline.Board) *DealHandlers {
	return &DealHandlers{board: board}
}

type AddDealNoteInput struct {
	DealID  string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Content string `json:"content" jsonschema:"Note content (required)"`
}

type DealNoteOutput struct {
	DealID    string `json:"deal_id"`
	Fragments int    `json:"fragments"`
	Preview   string `json:"preview"`
}

func (h *DealHandlers) AddDealNote(ctx context.Context, request *mcp.CallToolRequest, input AddDealNoteInput) (*mcp.CallToolResult, DealNoteOutput, error) {
	if input.DealID == "" {
		return nil, DealNoteOutput{}, fmt.Errorf("deal_id is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, DealNoteOutput{}, fmt.Errorf("content is required")
	}

	raw, err := h.board.AddNote(ctx, input.DealID, input.Content, nil)
	if err != nil {
		return nil, DealNoteOutput{}, fmt.Errorf("failed to add note: %w", err)
	}
	preview, err := h.board.NotePreview(input.DealID)
	if err != nil {
		return nil, DealNoteOutput{}, err
	}

	return nil, DealNoteOutput{
		DealID:    input.DealID,
		Fragments: len(notes.Decode(raw)),
		Preview:   preview,
	}, nil
}
