// ABOUTME: Graphviz rendering of the pipeline
// ABOUTME: Stages form a chain in board order with each deal hanging off its stage
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/dealflow/models"
	"github.com/shopspring/decimal"
)

// PipelineDOT renders the stages and their deals as Graphviz source.
func PipelineDOT(ctx context.Context, stages []models.Stage) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Sales Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	var prev *cgraph.Node
	for i, stage := range stages {
		total := decimal.Zero
		for _, d := range stage.Deals {
			total = total.Add(d.Amount)
		}

		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%d deals\n%s", stage.Name, len(stage.Deals), total.StringFixed(2)))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightblue")

		if prev != nil {
			edge, err := graph.CreateEdgeByName(fmt.Sprintf("next_%d", i), prev, node)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("bold")
		}
		prev = node

		for j, deal := range stage.Deals {
			dn, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d_%d", i, j))
			if err != nil {
				return "", fmt.Errorf("failed to create deal node: %w", err)
			}
			dn.SetLabel(fmt.Sprintf("%s\n%s %s", deal.Title, deal.Amount.StringFixed(2), deal.Currency))
			dn.SetShape("ellipse")
			dn.SetStyle("filled")
			dn.SetFillColor(priorityColor(deal.Priority))

			edge, err := graph.CreateEdgeByName(fmt.Sprintf("in_%d_%d", i, j), node, dn)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return "lightcoral"
	case models.PriorityLow:
		return "lightgrey"
	default:
		return "lightyellow"
	}
}
