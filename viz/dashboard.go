// ABOUTME: Terminal pipeline dashboard statistics and rendering
// ABOUTME: Provides ASCII bars per stage with decimal deal totals
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/pipeline"
	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	Stages []StageStats

	TotalDeals int
	TotalValue decimal.Decimal

	// Needs attention
	OverdueActivities []AttentionItem
	IdleDeals         []AttentionItem
}

type StageStats struct {
	Stage  string
	Count  int
	Amount decimal.Decimal
}

type AttentionItem struct {
	Deal   string
	Detail string
}

// GenerateDashboardStats summarizes the board in stage order.
func GenerateDashboardStats(stages []models.Stage, now time.Time) *DashboardStats {
	stats := &DashboardStats{TotalValue: decimal.Zero}

	for _, stage := range stages {
		s := StageStats{Stage: stage.Name, Amount: decimal.Zero}
		for _, deal := range stage.Deals {
			s.Count++
			s.Amount = s.Amount.Add(deal.Amount)

			next := pipeline.NextSchedule(deal, now)
			switch {
			case next == nil:
				stats.IdleDeals = append(stats.IdleDeals, AttentionItem{
					Deal:   deal.Title,
					Detail: "no open activity",
				})
			case next.When().Before(now):
				days := int(now.Sub(*next.When()).Hours() / 24)
				stats.OverdueActivities = append(stats.OverdueActivities, AttentionItem{
					Deal:   deal.Title,
					Detail: fmt.Sprintf("%s overdue %dd", next.ActivityName, days),
				})
			}
		}
		stats.TotalDeals += s.Count
		stats.TotalValue = stats.TotalValue.Add(s.Amount)
		stats.Stages = append(stats.Stages, s)
	}

	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	// Header
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DEALFLOW PIPELINE\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderBars(&out, stats.Stages)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d deals  💰 %s total\n\n", stats.TotalDeals, stats.TotalValue.StringFixed(2)))

	if len(stats.OverdueActivities) > 0 || len(stats.IdleDeals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		for _, item := range stats.OverdueActivities {
			out.WriteString(fmt.Sprintf("  ⚠️  %s - %s\n", item.Deal, item.Detail))
		}
		if len(stats.IdleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - no open activity\n", len(stats.IdleDeals)))
		}
	}

	return out.String()
}

// RenderPipeline draws one bar per stage, scaled to the busiest stage.
func RenderPipeline(stages []models.Stage) string {
	var out strings.Builder
	renderBars(&out, GenerateDashboardStats(stages, time.Now()).Stages)
	return out.String()
}

func renderBars(out *strings.Builder, stages []StageStats) {
	// Find max count for scaling
	maxCount := 0
	width := 5
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
		if n := len([]rune(s.Stage)); n > width {
			width = n
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		// Calculate bar length (0-10 blocks)
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		pad := strings.Repeat(" ", width-len([]rune(s.Stage)))
		out.WriteString(fmt.Sprintf("  %s%s %s  %2d (%s)\n",
			s.Stage, pad, bar, s.Count, s.Amount.StringFixed(2)))
	}
}
