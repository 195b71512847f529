// ABOUTME: Tests for the REST API server
// ABOUTME: Drives the api client and pipeline board against an in-memory database over httptest
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*db.Repositories, string) {
	t.Helper()
	conn, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repos := db.NewRepositories(conn)
	require.NoError(t, repos.Stages.Seed(context.Background(), []string{"Lead", "Proposal", "Closed Won"}))

	srv := httptest.NewServer(NewServer(repos, nil).Handler())
	t.Cleanup(srv.Close)
	return repos, srv.URL + "/api/"
}

func newClient(t *testing.T, base string, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.NewClient(base, opts...)
	require.NoError(t, err)
	return c
}

func TestBoardAgainstServer(t *testing.T) {
	repos, base := setupTestServer(t)
	ctx := context.Background()

	var messages []string
	board := pipeline.NewBoard(newClient(t, base), pipeline.Options{
		Notifier: pipeline.NotifierFunc(func(msg string) { messages = append(messages, msg) }),
	})
	require.NoError(t, board.Load(ctx))

	stages := board.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, "Lead", stages[0].Name)

	deal, err := board.AddDeal(ctx, stages[0].ID, models.Deal{
		Title:    "Acme",
		Amount:   decimal.RequireFromString("1500.50"),
		Currency: "฿",
	})
	require.NoError(t, err)
	assert.False(t, models.IsTempID(deal.ID))

	msg, err := board.MoveDeal(ctx, stages[0].ID, 0, stages[2].ID)
	require.NoError(t, err)
	assert.Equal(t, `Moved "Acme" to Closed Won. Next step: Create PO or Receive PO.`, msg)

	stored, err := repos.Deals.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, stages[2].ID, stored.StageID)
	assert.Equal(t, "Closed Won", stored.Stage)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(stored.Amount))

	// Rename cascades to the deal's stage name on the server.
	require.NoError(t, board.EditStageName(ctx, stages[2].ID, "Won"))
	stored, err = repos.Deals.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Won", stored.Stage)

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	sched, err := board.AddSchedule(ctx, deal.ID, due, "Call back", "Somchai", "Acme")
	require.NoError(t, err)
	assert.False(t, models.IsTempID(sched.ID))

	done, err := board.ToggleComplete(ctx, deal.ID, sched.ID)
	require.NoError(t, err)
	assert.True(t, done)

	persisted, err := repos.Schedules.Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, persisted.Completed)

	// A fresh board sees the same state.
	fresh := pipeline.NewBoard(newClient(t, base), pipeline.Options{})
	require.NoError(t, fresh.Load(ctx))
	got, stageID, err := fresh.Deal(deal.ID)
	require.NoError(t, err)
	assert.Equal(t, stages[2].ID, stageID)
	require.Len(t, got.ActivitySchedules, 1)
	assert.True(t, got.ActivitySchedules[0].Completed)

	require.NoError(t, board.DeleteStage(ctx, stages[2].ID, func(models.Stage) bool { return true }))
	_, err = repos.Deals.Get(ctx, deal.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = repos.Schedules.Get(ctx, sched.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestTokenAuthentication(t *testing.T) {
	repos, base := setupTestServer(t)
	ctx := context.Background()

	// Open until the first token is issued.
	_, err := newClient(t, base).ListStages(ctx)
	require.NoError(t, err)

	token, err := repos.Tokens.Issue(ctx, "test")
	require.NoError(t, err)

	unauthorized := false
	_, err = newClient(t, base, api.WithUnauthorizedHandler(func() { unauthorized = true })).ListStages(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.True(t, unauthorized)

	_, err = newClient(t, base, api.WithToken("wrong")).ListStages(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	stages, err := newClient(t, base, api.WithToken(token)).ListStages(ctx)
	require.NoError(t, err)
	assert.Len(t, stages, 3)
}

func TestErrorResponses(t *testing.T) {
	_, base := setupTestServer(t)
	ctx := context.Background()
	c := newClient(t, base)

	err := c.UpdateStage(ctx, "missing", api.StagePatch{})
	assert.True(t, api.IsNotFound(err))

	_, err = c.CreateStage(ctx, models.Stage{Name: "Lead"})
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.Contains(t, statusErr.Body, `"error"`)

	_, err = c.CreateDeal(ctx, models.Deal{Title: "Orphan", StageID: "nope", Stage: "Nowhere"})
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)

	_, err = c.Fetch(ctx, models.DocumentKind("receipt"))
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestMalformedBody(t *testing.T) {
	_, base := setupTestServer(t)

	resp, err := http.Post(base+"stages/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "invalid JSON body")
}

func TestCustomersAndDocuments(t *testing.T) {
	_, base := setupTestServer(t)
	ctx := context.Background()
	c := newClient(t, base)

	customer, err := c.CreateCustomer(ctx, models.Customer{Name: "Acme Co", TaxID: "0105555"})
	require.NoError(t, err)
	require.NotEmpty(t, customer.ID)

	got, err := c.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", got.Name)

	name := "Acme Company"
	require.NoError(t, c.UpdateCustomer(ctx, customer.ID, api.CustomerPatch{Name: &name}))
	got, err = c.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Company", got.Name)

	doc, err := c.CreateDocument(ctx, models.Document{Kind: models.KindQuotation, Number: "QT-100", Customer: "Acme Company"})
	require.NoError(t, err)

	docs, err := c.Fetch(ctx, models.KindQuotation)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "QT-100", docs[0].Number)
	assert.Equal(t, models.SourceServer, docs[0].Source)

	require.NoError(t, c.DeleteDocument(ctx, doc.ID))
	assert.True(t, api.IsNotFound(c.DeleteDocument(ctx, doc.ID)))

	require.NoError(t, c.DeleteCustomer(ctx, customer.ID))
	_, err = c.GetCustomer(ctx, customer.ID)
	assert.True(t, api.IsNotFound(err))
}
