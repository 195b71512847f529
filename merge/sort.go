// ABOUTME: Display orderings for merged document lists
// ABOUTME: Quotations by QT number, purchase orders by update time, everything else by save time
package merge

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/dealflow/models"
)

var quotationNumberRe = regexp.MustCompile(`(?i)QT[-/ ]?(\d+)`)

// dateLayouts are tried in order when a document carries its date as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Sort orders docs in place for display.
func Sort(kind models.DocumentKind, docs []models.Document) {
	switch kind {
	case models.KindQuotation:
		sort.SliceStable(docs, func(i, j int) bool {
			return QuotationNumber(docs[i].Number) < QuotationNumber(docs[j].Number)
		})
	case models.KindPurchaseOrder:
		sort.SliceStable(docs, func(i, j int) bool {
			return purchaseOrderTime(docs[i]).After(purchaseOrderTime(docs[j]))
		})
	default:
		sort.SliceStable(docs, func(i, j int) bool {
			return savedTime(docs[i]).After(savedTime(docs[j]))
		})
	}
}

// QuotationNumber extracts the numeric part of a "QT-123" style number, or 0.
func QuotationNumber(number string) int {
	m := quotationNumberRe.FindStringSubmatch(number)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func savedTime(d models.Document) time.Time {
	if d.SavedAt != nil {
		return *d.SavedAt
	}
	return parseDate(d.Details.Date)
}

func purchaseOrderTime(d models.Document) time.Time {
	if d.UpdatedAt != nil {
		return *d.UpdatedAt
	}
	return parseDate(d.ExtraFields.OrderDate)
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
