// ABOUTME: Pipeline visualization MCP handlers
// ABOUTME: Provides pipeline_graph and pipeline_dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealflow/pipeline"
	"github.com/harperreed/dealflow/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	board *pipeline.Board
}

func NewVizHandlers(board *pipeline.Board) *VizHandlers {
	return &VizHandlers{board: board}
}

type PipelineGraphInput struct{}

type PipelineGraphOutput struct {
	DOTSource  string `json:"dot_source"`
	StageCount int    `json:"stage_count"`
	DealCount  int    `json:"deal_count"`
}

func (h *VizHandlers) PipelineGraph(ctx context.Context, request *mcp.CallToolRequest, input PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	stages := h.board.Stages()
	dot, err := viz.PipelineDOT(ctx, stages)
	if err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	deals := 0
	for _, s := range stages {
		deals += len(s.Deals)
	}
	return nil, PipelineGraphOutput{DOTSource: dot, StageCount: len(stages), DealCount: deals}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text string `json:"text"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats := viz.GenerateDashboardStats(h.board.Stages(), time.Now())
	return nil, DashboardOutput{Text: viz.RenderDashboard(stats)}, nil
}
