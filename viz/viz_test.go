// ABOUTME: Tests for pipeline dashboard rendering and graph generation
// ABOUTME: Builds boards in memory, no database involved
package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStages(now time.Time) []models.Stage {
	past := now.Add(-72 * time.Hour)
	future := now.Add(24 * time.Hour)
	return []models.Stage{
		{ID: "s1", Name: "Lead", Deals: []models.Deal{
			{ID: "d1", Title: "Acme", Amount: decimal.RequireFromString("1000.50"), Priority: models.PriorityHigh,
				ActivitySchedules: []models.ActivitySchedule{{ID: "a1", ActivityName: "Call", DueAt: &future}}},
			{ID: "d2", Title: "Globex", Amount: decimal.RequireFromString("250")},
		}},
		{ID: "s2", Name: "Closed Won", Deals: []models.Deal{
			{ID: "d3", Title: "Initech", Amount: decimal.RequireFromString("99.25"),
				ActivitySchedules: []models.ActivitySchedule{{ID: "a2", ActivityName: "Invoice", DueAt: &past}}},
		}},
		{ID: "s3", Name: "Lost"},
	}
}

func TestGenerateDashboardStats(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	stats := GenerateDashboardStats(testStages(now), now)

	require.Len(t, stats.Stages, 3)
	assert.Equal(t, 2, stats.Stages[0].Count)
	assert.Equal(t, "1250.50", stats.Stages[0].Amount.StringFixed(2))
	assert.Equal(t, 0, stats.Stages[2].Count)
	assert.Equal(t, 3, stats.TotalDeals)
	assert.Equal(t, "1349.75", stats.TotalValue.StringFixed(2))

	require.Len(t, stats.OverdueActivities, 1)
	assert.Equal(t, "Initech", stats.OverdueActivities[0].Deal)
	assert.Equal(t, "Invoice overdue 3d", stats.OverdueActivities[0].Detail)

	require.Len(t, stats.IdleDeals, 1)
	assert.Equal(t, "Globex", stats.IdleDeals[0].Deal)
}

func TestRenderPipelineBars(t *testing.T) {
	out := RenderPipeline(testStages(time.Now()))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "Lead")
	assert.Contains(t, lines[0], strings.Repeat("█", 10))
	assert.Contains(t, lines[0], "(1250.50)")
	assert.Contains(t, lines[1], strings.Repeat("█", 5)+strings.Repeat("░", 5))
	assert.Contains(t, lines[2], strings.Repeat("░", 10))
	assert.Contains(t, lines[2], "(0.00)")
}

func TestRenderDashboard(t *testing.T) {
	now := time.Now()
	out := RenderDashboard(GenerateDashboardStats(testStages(now), now))

	assert.Contains(t, out, "PIPELINE OVERVIEW")
	assert.Contains(t, out, "3 deals")
	assert.Contains(t, out, "1349.75 total")
	assert.Contains(t, out, "NEEDS ATTENTION")
	assert.Contains(t, out, "Initech")
}

func TestRenderDashboardEmpty(t *testing.T) {
	out := RenderDashboard(GenerateDashboardStats(nil, time.Now()))
	assert.Contains(t, out, "0 deals")
	assert.NotContains(t, out, "NEEDS ATTENTION")
}

func TestPipelineDOT(t *testing.T) {
	dot, err := PipelineDOT(context.Background(), testStages(time.Now()))
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "Lead")
	assert.Contains(t, dot, "Closed Won")
	assert.Contains(t, dot, "Acme")
	assert.Contains(t, dot, "lightcoral")
}
