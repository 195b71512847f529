// ABOUTME: Tests for the dealflow command tree
// ABOUTME: Runs subcommands against a live REST server with config and cache in temp dirs
package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/harperreed/dealflow/web"
)

type cliEnv struct {
	repos  *db.Repositories
	client *api.Client
	apiURL string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repos := db.NewRepositories(conn)
	require.NoError(t, repos.Stages.Seed(ctx, []string{"Lead", "Proposal", "Closed Won"}))

	srv := httptest.NewServer(web.NewServer(repos, nil).Handler())
	t.Cleanup(srv.Close)
	apiURL := srv.URL + "/api/"

	configHome := xdg.ConfigHome
	xdg.ConfigHome = t.TempDir()
	t.Cleanup(func() { xdg.ConfigHome = configHome })

	t.Setenv("DEALFLOW_API_URL", apiURL)
	t.Setenv("DEALFLOW_CACHE_DIR", t.TempDir())
	t.Setenv("DEALFLOW_TOKEN", "")
	t.Setenv("DEALFLOW_LOG_LEVEL", "error")

	client, err := api.NewClient(apiURL)
	require.NoError(t, err)
	return &cliEnv{repos: repos, client: client, apiURL: apiURL}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, app := newRoot("test")
	defer app.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) dealID(t *testing.T, title string) string {
	t.Helper()
	deals, err := e.client.ListDeals(context.Background())
	require.NoError(t, err)
	for _, d := range deals {
		if d.Title == title {
			return d.ID
		}
	}
	t.Fatalf("deal %q not found", title)
	return ""
}

func TestStagesCommands(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "", "stages", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Lead")
	assert.Contains(t, out, "Closed Won")

	out, err = runCLI(t, "", "stages", "add", "Closed Lost")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stage added: Closed Lost")

	_, err = runCLI(t, "", "stages", "add", "Lead")
	assert.ErrorIs(t, err, pipeline.ErrDuplicateStage)

	out, err = runCLI(t, "", "stages", "rename", "Lead", "Prospect")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Renamed Lead to Prospect")

	out, err = runCLI(t, "", "stages", "reorder", "Prospect", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Order: Proposal → Prospect → Closed Won → Closed Lost")
	assert.Contains(t, out, "✓ Stage order saved")

	_, err = runCLI(t, "", "stages", "reorder", "Prospect", "9")
	assert.Error(t, err)

	_, err = runCLI(t, "n\n", "stages", "delete", "Closed Lost")
	assert.ErrorIs(t, err, pipeline.ErrNotConfirmed)

	out, err = runCLI(t, "y\n", "stages", "delete", "Closed Lost")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stage deleted: Closed Lost")

	out, err = runCLI(t, "", "stages", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Closed Lost")
}

func TestDealsCommands(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "", "deals", "add", "Lead", "Acme", "--amount", "1200.50", "--customer", "Acme Co", "--priority", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deal created: Acme")
	assert.Contains(t, out, "Amount: 1200.50 THB")
	id := env.dealID(t, "Acme")

	_, err = runCLI(t, "", "deals", "add", "Lead", "Broken", "--amount", "lots")
	assert.Error(t, err)

	out, err = runCLI(t, "", "deals", "move", id, "Closed Won")
	require.NoError(t, err)
	assert.Contains(t, out, `✓ Moved "Acme" to Closed Won. Next step: Create PO or Receive PO.`)

	out, err = runCLI(t, "", "deals", "move", id, "Closed Won")
	require.NoError(t, err)
	assert.Contains(t, out, "Deal is already in Closed Won")

	out, err = runCLI(t, "", "deals", "list", "--stage", "Closed Won")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "1200.50 THB")

	out, err = runCLI(t, "", "deals", "notes", id, "--add", "Sent the quotation")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Note added")
	assert.Contains(t, out, "Sent the quotation")

	out, err = runCLI(t, "", "deals", "notes", id, "--edit", "0", "--text", "Quotation accepted")
	require.NoError(t, err)
	assert.Contains(t, out, "Quotation accepted")
	assert.NotContains(t, out, "Sent the quotation")

	out, err = runCLI(t, "", "deals", "delete", id, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deal deleted: Acme")

	_, err = runCLI(t, "", "deals", "move", id, "Lead")
	assert.ErrorIs(t, err, pipeline.ErrDealNotFound)
}

func TestDealNoteAttachment(t *testing.T) {
	env := setupCLI(t)

	_, err := runCLI(t, "", "deals", "add", "Lead", "Globex")
	require.NoError(t, err)
	id := env.dealID(t, "Globex")

	path := filepath.Join(t.TempDir(), "quote.txt")
	require.NoError(t, os.WriteFile(path, []byte("quote"), 0644))

	out, err := runCLI(t, "", "deals", "notes", id, "--attach", path)
	require.NoError(t, err)
	assert.Contains(t, out, "📎 quote.txt")
}

func TestSchedulesCommands(t *testing.T) {
	env := setupCLI(t)

	_, err := runCLI(t, "", "deals", "add", "Lead", "Acme", "--salesperson", "Somchai")
	require.NoError(t, err)
	id := env.dealID(t, "Acme")

	out, err := runCLI(t, "", "schedules", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "No open activities")

	_, err = runCLI(t, "", "schedules", "add", id, "--activity", "Call back")
	assert.ErrorIs(t, err, pipeline.ErrDueDateRequired)

	_, err = runCLI(t, "", "schedules", "add", id, "--due", "someday")
	assert.Error(t, err)

	out, err = runCLI(t, "", "schedules", "add", id, "--due", "2030-01-02 10:00", "--activity", "Call back")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Activity scheduled: Call back")

	out, err = runCLI(t, "", "schedules", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Next: Call back (due 2030-01-02 10:00)")

	schedules, err := env.client.ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "Somchai", schedules[0].Salesperson)

	out, err = runCLI(t, "", "schedules", "done", id, schedules[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Activity marked done")

	out, err = runCLI(t, "", "schedules", "list", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Call back")
	assert.Contains(t, out, string(models.ScheduleCompleted))

	out, err = runCLI(t, "", "schedules", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "No open activities")
}

func TestDocsCommands(t *testing.T) {
	env := setupCLI(t)

	_, err := env.client.CreateDocument(context.Background(), models.Document{
		Kind:     models.KindInvoice,
		Number:   "INV-001",
		Customer: "Acme Co",
		Details:  models.DocumentDetails{Date: "2024-03-11"},
	})
	require.NoError(t, err)

	out, err := runCLI(t, "", "docs", "list", "invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-001")
	assert.Contains(t, out, models.SourceServer)

	out, err = runCLI(t, "", "docs", "list", "invoice", "--customer", "Globex")
	require.NoError(t, err)
	assert.NotContains(t, out, "INV-001")

	_, err = runCLI(t, "", "docs", "list", "receipt")
	assert.Error(t, err)

	out, err = runCLI(t, "", "docs", "forget", "invoice", "INV-001")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Local invoice INV-001 forgotten")
}

func TestVizCommands(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "", "deals", "add", "Lead", "Acme", "--amount", "500")
	require.NoError(t, err)

	out, err := runCLI(t, "", "viz", "pipeline")
	require.NoError(t, err)
	assert.Contains(t, out, "Lead")
	assert.Contains(t, out, "(500.00)")

	out, err = runCLI(t, "", "viz", "pipeline", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "Acme")

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	out, err = runCLI(t, "", "viz", "pipeline", "--format", "dot", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pipeline written to")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")

	_, err = runCLI(t, "", "viz", "pipeline", "--format", "svg")
	assert.Error(t, err)

	out, err = runCLI(t, "", "viz", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "PIPELINE OVERVIEW")
	assert.Contains(t, out, "1 deals")
}

func TestLoginLogout(t *testing.T) {
	env := setupCLI(t)

	token, err := env.repos.Tokens.Issue(context.Background(), "cli test")
	require.NoError(t, err)

	_, err = runCLI(t, "", "stages", "list")
	require.Error(t, err, "server requires a token once one is issued")

	_, err = runCLI(t, "not-a-token\n", "login")
	assert.Error(t, err)

	out, err := runCLI(t, token+"\n", "login", "--api-url", env.apiURL)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logged in to "+env.apiURL)
	_, err = os.Stat(filepath.Join(xdg.ConfigHome, "dealflow", "config.json"))
	assert.NoError(t, err, "--api-url is saved to the config file")

	out, err = runCLI(t, "", "stages", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Lead")

	out, err = runCLI(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logged out")

	_, err = runCLI(t, "", "stages", "list")
	assert.Error(t, err)
}

func TestTokenCommands(t *testing.T) {
	setupCLI(t)
	t.Setenv("DEALFLOW_DB_PATH", filepath.Join(t.TempDir(), "dealflow.db"))

	out, err := runCLI(t, "", "token", "issue", "--label", "laptop")
	require.NoError(t, err)
	require.Contains(t, out, "✓ Token issued: ")

	token := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(out, "✓ Token issued: "), "\n", 2)[0])
	require.NotEmpty(t, token)

	out, err = runCLI(t, "", "token", "revoke", token)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Token revoked")
}

func TestConfirmPrompt(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirmPrompt(strings.NewReader("yes\n"), &out, "Sure?"))
	assert.True(t, confirmPrompt(strings.NewReader("Y\n"), &out, "Sure?"))
	assert.False(t, confirmPrompt(strings.NewReader("\n"), &out, "Sure?"))
	assert.False(t, confirmPrompt(strings.NewReader(""), &out, "Sure?"))
	assert.Contains(t, out.String(), "Sure? [y/N]: ")
}

func TestParseDue(t *testing.T) {
	for _, in := range []string{"2024-03-11 14:00", "2024-03-11", "11/03/2024 14:00", "2024-03-11T14:00:00+07:00"} {
		due, err := parseDue(in)
		require.NoError(t, err, in)
		assert.Equal(t, 2024, due.Year())
		assert.Equal(t, 11, due.Day())
	}
	_, err := parseDue("next week")
	assert.Error(t, err)
}
