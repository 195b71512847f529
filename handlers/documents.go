// ABOUTME: Document MCP tool handler
// ABOUTME: Implements list_documents over the merged local cache and server list
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/dealflow/merge"
	"github.com/harperreed/dealflow/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DocumentHandlers struct {
	merger *merge.Merger
}

func NewDocumentHandlers(merger *merge.Merger) *DocumentHandlers {
	return &DocumentHandlers{merger: merger}
}

type ListDocumentsInput struct {
	Kind     string `json:"kind" jsonschema:"Document kind: quotation, invoice, billing_note, tax_invoice, purchase_order"`
	Customer string `json:"customer,omitempty" jsonschema:"Only documents for this customer"`
}

type DocumentSummary struct {
	Number   string `json:"number"`
	Customer string `json:"customer,omitempty"`
	Date     string `json:"date,omitempty"`
	Source   string `json:"source"`
}

type ListDocumentsOutput struct {
	Kind      string            `json:"kind"`
	Documents []DocumentSummary `json:"documents"`
}

func (h *DocumentHandlers) ListDocuments(ctx context.Context, request *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	kind, err := models.ParseDocumentKind(input.Kind)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	docs, err := h.merger.List(ctx, kind)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
	}

	out := ListDocumentsOutput{Kind: string(kind), Documents: []DocumentSummary{}}
	for _, d := range docs {
		if input.Customer != "" && d.Customer != input.Customer {
			continue
		}
		date := d.Details.Date
		if kind == models.KindPurchaseOrder && d.ExtraFields.OrderDate != "" {
			date = d.ExtraFields.OrderDate
		}
		out.Documents = append(out.Documents, DocumentSummary{
			Number:   d.Number,
			Customer: d.Customer,
			Date:     date,
			Source:   d.Source,
		})
	}
	return nil, out, nil
}
