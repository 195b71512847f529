package merge

import (
	"testing"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/stretchr/testify/assert"
)

func numbers(docs []models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Number
	}
	return out
}

func TestQuotationNumber(t *testing.T) {
	tests := map[string]int{
		"QT-100":      100,
		"qt/7":        7,
		"QT 12":       12,
		"QT3":         3,
		"ACME-QT-042": 42,
		"INV-9":       0,
		"":            0,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, QuotationNumber(in))
		})
	}
}

func TestSortQuotationsAscending(t *testing.T) {
	docs := []models.Document{
		{Number: "QT-20"},
		{Number: "draft"},
		{Number: "QT-3"},
		{Number: "other"},
	}

	Sort(models.KindQuotation, docs)
	assert.Equal(t, []string{"draft", "other", "QT-3", "QT-20"}, numbers(docs))
}

func TestSortInvoicesDescending(t *testing.T) {
	saved := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := []models.Document{
		{Number: "old", Details: models.DocumentDetails{Date: "2023-01-05"}},
		{Number: "undated"},
		{Number: "saved", SavedAt: &saved},
		{Number: "mid", Details: models.DocumentDetails{Date: "15/03/2024"}},
	}

	for _, kind := range []models.DocumentKind{models.KindInvoice, models.KindBillingNote, models.KindTaxInvoice} {
		t.Run(string(kind), func(t *testing.T) {
			sorted := append([]models.Document(nil), docs...)
			Sort(kind, sorted)
			assert.Equal(t, []string{"saved", "mid", "old", "undated"}, numbers(sorted))
		})
	}
}

func TestSortPurchaseOrdersDescending(t *testing.T) {
	updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []models.Document{
		{Number: "PO-1", UpdatedAt: &updated},
		{Number: "PO-2", ExtraFields: models.ExtraFields{OrderDate: "2024-02-10"}},
		{Number: "PO-3", ExtraFields: models.ExtraFields{OrderDate: "2023-12-31"}},
	}

	Sort(models.KindPurchaseOrder, docs)
	assert.Equal(t, []string{"PO-2", "PO-1", "PO-3"}, numbers(docs))
}
