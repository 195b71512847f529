// ABOUTME: MCP resource handlers for exposing pipeline data
// ABOUTME: Provides read-only access to the board, stages and deals via dealflow:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/dealflow/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	board *pipeline.Board
}

func NewResourceHandlers(board *pipeline.Board) *ResourceHandlers {
	return &ResourceHandlers{board: board}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "dealflow://") {
		return nil, fmt.Errorf("invalid URI scheme: expected dealflow://")
	}

	path := strings.TrimPrefix(uri, "dealflow://")
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "pipeline":
		return jsonResource(uri, h.board.Stages())

	case "stages":
		if len(parts) == 1 || parts[1] == "" {
			return jsonResource(uri, h.board.Stages())
		}
		stage, err := findStage(h.board, parts[1])
		if err != nil {
			return nil, fmt.Errorf("resource not found: %s: %w", uri, err)
		}
		return jsonResource(uri, stage)

	case "deals":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("deal id is required: dealflow://deals/{id}")
		}
		deal, _, err := h.board.Deal(parts[1])
		if err != nil {
			return nil, fmt.Errorf("resource not found: %s: %w", uri, err)
		}
		return jsonResource(uri, deal)

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
