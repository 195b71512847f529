// ABOUTME: Assembles the MCP server from the pipeline handlers
// ABOUTME: Registers tools, resources and prompts over one board and document merger
package handlers

import (
	"github.com/harperreed/dealflow/merge"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server. merger may be nil, in which case
// list_documents is not offered.
func NewServer(board *pipeline.Board, merger *merge.Merger, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dealflow",
		Version: version,
	}, nil)

	pipelineHandlers := NewPipelineHandlers(board)
	scheduleHandlers := NewScheduleHandlers(board)
	dealHandlers := NewDealHandlers(board)
	vizHandlers := NewVizHandlers(board)
	resourceHandlers := NewResourceHandlers(board)
	promptHandlers := NewPromptHandlers(board)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipeline",
		Description: "List stages in board order with their deals, totals and next activities",
	}, pipelineHandlers.ListPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another stage by stage id or name",
	}, pipelineHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_stage",
		Description: "Add a new stage at the end of the pipeline",
	}, pipelineHandlers.AddStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_stage",
		Description: "Rename a stage; deals in the stage follow the new name",
	}, pipelineHandlers.RenameStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reorder_stages",
		Description: "Move a stage to a new position in the pipeline",
	}, pipelineHandlers.ReorderStages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_schedule",
		Description: "Schedule an activity on a deal",
	}, scheduleHandlers.AddSchedule)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_schedule",
		Description: "Mark an activity done, or reopen it",
	}, scheduleHandlers.ToggleSchedule)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "next_activity",
		Description: "Show the activity a deal should do next",
	}, scheduleHandlers.NextActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_deal_note",
		Description: "Add a dated note to a deal",
	}, dealHandlers.AddDealNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Render the pipeline as Graphviz DOT source",
	}, vizHandlers.PipelineGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_dashboard",
		Description: "Text dashboard of stage totals and deals needing attention",
	}, vizHandlers.Dashboard)

	if merger != nil {
		documentHandlers := NewDocumentHandlers(merger)
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List quotations, invoices, billing notes, tax invoices or purchase orders, merging local drafts with server records",
		}, documentHandlers.ListDocuments)
	}

	server.AddResource(&mcp.Resource{
		URI:         "dealflow://pipeline",
		Name:        "pipeline",
		Description: "Every stage with its deals and activities",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "dealflow://stages/{id}",
		Name:        "stage",
		Description: "One stage by id or name",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "dealflow://deals/{id}",
		Name:        "deal",
		Description: "One deal with its activities and notes",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "deal-review",
		Description: "Review a deal's status, activities and notes",
		Arguments: []*mcp.PromptArgument{
			{Name: "deal_id", Description: "Deal ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Weekly review of the whole pipeline",
	}, promptHandlers.GetPrompt)

	return server
}
