// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs a board against the REST server backed by an in-memory database
package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/cache"
	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/merge"
	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/harperreed/dealflow/web"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	board  *pipeline.Board
	client *api.Client
	repos  *db.Repositories
	dealID string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repos := db.NewRepositories(conn)
	require.NoError(t, repos.Stages.Seed(ctx, []string{"Lead", "Proposal", "Closed Won"}))

	srv := httptest.NewServer(web.NewServer(repos, nil).Handler())
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL + "/api/")
	require.NoError(t, err)

	board := pipeline.NewBoard(client, pipeline.Options{})
	require.NoError(t, board.Load(ctx))

	deal, err := board.AddDeal(ctx, board.Stages()[0].ID, models.Deal{
		Title:        "Acme",
		CustomerName: "Acme Co",
		Amount:       decimal.RequireFromString("1200"),
		Currency:     "THB",
	})
	require.NoError(t, err)

	return &testEnv{board: board, client: client, repos: repos, dealID: deal.ID}
}

func TestListPipeline(t *testing.T) {
	env := setupTestEnv(t)
	h := NewPipelineHandlers(env.board)

	_, out, err := h.ListPipeline(context.Background(), nil, ListPipelineInput{})
	require.NoError(t, err)
	require.Len(t, out.Stages, 3)
	assert.Equal(t, "Lead", out.Stages[0].Name)
	assert.Equal(t, "1200.00", out.Stages[0].Total)
	require.Len(t, out.Stages[0].Deals, 1)
	assert.Equal(t, "Acme", out.Stages[0].Deals[0].Title)
	assert.Equal(t, "0.00", out.Stages[1].Total)

	_, out, err = h.ListPipeline(context.Background(), nil, ListPipelineInput{Stage: "Proposal"})
	require.NoError(t, err)
	require.Len(t, out.Stages, 1)
	assert.Empty(t, out.Stages[0].Deals)

	_, _, err = h.ListPipeline(context.Background(), nil, ListPipelineInput{Stage: "Nowhere"})
	assert.ErrorIs(t, err, pipeline.ErrStageNotFound)
}

func TestMoveDealTool(t *testing.T) {
	env := setupTestEnv(t)
	h := NewPipelineHandlers(env.board)
	ctx := context.Background()

	_, out, err := h.MoveDeal(ctx, nil, MoveDealInput{DealID: env.dealID, ToStage: "Closed Won"})
	require.NoError(t, err)
	assert.Equal(t, `Moved "Acme" to Closed Won. Next step: Create PO or Receive PO.`, out.Message)

	stored, err := env.repos.Deals.Get(ctx, env.dealID)
	require.NoError(t, err)
	assert.Equal(t, "Closed Won", stored.Stage)

	// Moving to the stage it is already in is a no-op.
	_, out, err = h.MoveDeal(ctx, nil, MoveDealInput{DealID: env.dealID, ToStage: "Closed Won"})
	require.NoError(t, err)
	assert.Equal(t, `"Acme" is already in Closed Won.`, out.Message)

	_, _, err = h.MoveDeal(ctx, nil, MoveDealInput{DealID: "missing", ToStage: "Lead"})
	assert.ErrorIs(t, err, pipeline.ErrDealNotFound)

	_, _, err = h.MoveDeal(ctx, nil, MoveDealInput{DealID: env.dealID})
	assert.Error(t, err)
}

func TestStageTools(t *testing.T) {
	env := setupTestEnv(t)
	h := NewPipelineHandlers(env.board)
	ctx := context.Background()

	_, added, err := h.AddStage(ctx, nil, AddStageInput{Name: "Negotiation"})
	require.NoError(t, err)
	assert.Equal(t, "Negotiation", added.Name)
	assert.False(t, models.IsTempID(added.ID))

	_, _, err = h.AddStage(ctx, nil, AddStageInput{Name: "Lead"})
	assert.ErrorIs(t, err, pipeline.ErrDuplicateStage)

	_, renamed, err := h.RenameStage(ctx, nil, RenameStageInput{Stage: "Lead", Name: "Prospect"})
	require.NoError(t, err)
	assert.Equal(t, "Prospect", renamed.Name)

	stored, err := env.repos.Deals.Get(ctx, env.dealID)
	require.NoError(t, err)
	assert.Equal(t, "Prospect", stored.Stage)

	_, order, err := h.ReorderStages(ctx, nil, ReorderStagesInput{Stage: "Negotiation", Position: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Prospect", "Negotiation", "Proposal", "Closed Won"}, order.Stages)

	stages, err := env.repos.Stages.List(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "Negotiation", stages[1].Name)

	_, _, err = h.ReorderStages(ctx, nil, ReorderStagesInput{Stage: "Negotiation", Position: 9})
	assert.Error(t, err)
}

func TestScheduleTools(t *testing.T) {
	env := setupTestEnv(t)
	h := NewScheduleHandlers(env.board)
	ctx := context.Background()

	_, next, err := h.NextActivity(ctx, nil, NextActivityInput{DealID: env.dealID})
	require.NoError(t, err)
	assert.False(t, next.Found)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	_, added, err := h.AddSchedule(ctx, nil, AddScheduleInput{
		DealID:   env.dealID,
		DueAt:    due.Format(time.RFC3339),
		Activity: "Send quotation",
	})
	require.NoError(t, err)
	assert.False(t, models.IsTempID(added.ID))
	require.NotNil(t, added.DueAt)

	persisted, err := env.repos.Schedules.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", persisted.Customer)

	_, next, err = h.NextActivity(ctx, nil, NextActivityInput{DealID: env.dealID})
	require.NoError(t, err)
	require.True(t, next.Found)
	assert.Equal(t, "Send quotation", next.Schedule.ActivityName)

	_, toggled, err := h.ToggleSchedule(ctx, nil, ToggleScheduleInput{DealID: env.dealID, ScheduleID: added.ID})
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	// Completed activities are not offered as next.
	_, next, err = h.NextActivity(ctx, nil, NextActivityInput{DealID: env.dealID})
	require.NoError(t, err)
	assert.False(t, next.Found)

	_, _, err = h.AddSchedule(ctx, nil, AddScheduleInput{DealID: env.dealID, Activity: "No date"})
	assert.ErrorIs(t, err, pipeline.ErrDueDateRequired)

	_, _, err = h.AddSchedule(ctx, nil, AddScheduleInput{DealID: env.dealID, DueAt: "tomorrow"})
	assert.Error(t, err)
}

func TestAddDealNoteTool(t *testing.T) {
	env := setupTestEnv(t)
	h := NewDealHandlers(env.board)
	ctx := context.Background()

	_, out, err := h.AddDealNote(ctx, nil, AddDealNoteInput{DealID: env.dealID, Content: "Called the buyer"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Fragments)
	assert.Equal(t, "Today", out.Preview)

	_, out, err = h.AddDealNote(ctx, nil, AddDealNoteInput{DealID: env.dealID, Content: "Sent samples"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Fragments)

	stored, err := env.repos.Deals.Get(ctx, env.dealID)
	require.NoError(t, err)
	assert.Contains(t, stored.Notes, "Called the buyer")
	assert.Contains(t, stored.Notes, "Sent samples")

	_, _, err = h.AddDealNote(ctx, nil, AddDealNoteInput{DealID: env.dealID, Content: "   "})
	assert.Error(t, err)
}

func TestListDocumentsTool(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	store, err := cache.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = env.client.CreateDocument(ctx, models.Document{Kind: models.KindQuotation, Number: "QT-100", Customer: "Acme Co"})
	require.NoError(t, err)

	merger := &merge.Merger{Store: store, Source: env.client}
	now := time.Now()
	require.NoError(t, merger.SaveLocal(ctx, models.Document{Kind: models.KindQuotation, Number: "QT-100", Customer: "Acme Co"}, now))
	require.NoError(t, merger.SaveLocal(ctx, models.Document{Kind: models.KindQuotation, Number: "QT-101", Customer: "Globex"}, now))

	h := NewDocumentHandlers(merger)
	_, out, err := h.ListDocuments(ctx, nil, ListDocumentsInput{Kind: "quotation"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "QT-100", out.Documents[0].Number)
	assert.Equal(t, models.SourceServer, out.Documents[0].Source)
	assert.Equal(t, "QT-101", out.Documents[1].Number)
	assert.Equal(t, models.SourceLocal, out.Documents[1].Source)

	_, out, err = h.ListDocuments(ctx, nil, ListDocumentsInput{Kind: "quotation", Customer: "Globex"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)

	_, _, err = h.ListDocuments(ctx, nil, ListDocumentsInput{Kind: "receipt"})
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	env := setupTestEnv(t)
	h := NewResourceHandlers(env.board)
	ctx := context.Background()

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("dealflow://pipeline")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	assert.Contains(t, res.Contents[0].Text, `"Acme"`)

	res, err = read("dealflow://deals/" + env.dealID)
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, env.dealID)

	res, err = read("dealflow://stages/Lead")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"Lead"`)

	_, err = read("dealflow://deals/missing")
	assert.Error(t, err)

	_, err = read("crm://pipeline")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	env := setupTestEnv(t)
	h := NewPromptHandlers(env.board)
	ctx := context.Background()

	_, err := env.board.AddNote(ctx, env.dealID, "Budget approved", nil)
	require.NoError(t, err)

	res, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "deal-review",
		Arguments: map[string]string{"deal_id": env.dealID},
	}})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Deal: Acme")
	assert.Contains(t, text, "Stage: Lead")
	assert.Contains(t, text, "Budget approved")

	res, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "pipeline-review"}})
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Messages[0].Content.(*mcp.TextContent).Text, "PIPELINE OVERVIEW"))

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-review"}})
	assert.Error(t, err)
}

func TestVizTools(t *testing.T) {
	env := setupTestEnv(t)
	h := NewVizHandlers(env.board)

	_, graph, err := h.PipelineGraph(context.Background(), nil, PipelineGraphInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, graph.StageCount)
	assert.Equal(t, 1, graph.DealCount)
	assert.Contains(t, graph.DOTSource, "Acme")

	_, dash, err := h.Dashboard(context.Background(), nil, DashboardInput{})
	require.NoError(t, err)
	assert.Contains(t, dash.Text, "1 deals")
}

func TestNewServerRegisters(t *testing.T) {
	env := setupTestEnv(t)
	assert.NotNil(t, NewServer(env.board, nil, "test"))
}
