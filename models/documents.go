// ABOUTME: Business document models used by the merge layer
// ABOUTME: Quotations, invoices, billing notes, tax invoices and purchase orders share one shape
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type DocumentKind string

const (
	KindQuotation     DocumentKind = "quotation"
	KindInvoice       DocumentKind = "invoice"
	KindBillingNote   DocumentKind = "billing_note"
	KindTaxInvoice    DocumentKind = "tax_invoice"
	KindPurchaseOrder DocumentKind = "purchase_order"
)

// DocumentKinds lists every kind in display order.
var DocumentKinds = []DocumentKind{
	KindQuotation,
	KindInvoice,
	KindBillingNote,
	KindTaxInvoice,
	KindPurchaseOrder,
}

// ParseDocumentKind validates a kind name.
func ParseDocumentKind(s string) (DocumentKind, error) {
	for _, k := range DocumentKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind: %s", s)
}

// Document source markers.
const (
	SourceLocal  = "local"
	SourceServer = "server"
)

type Document struct {
	ID          string          `json:"id,omitempty"`
	Kind        DocumentKind    `json:"kind"`
	Number      string          `json:"number"`
	Customer    string          `json:"customer,omitempty"`
	SavedAt     *time.Time      `json:"saved_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Details     DocumentDetails `json:"details"`
	ExtraFields ExtraFields     `json:"extra_fields"`
	Source      string          `json:"source,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type DocumentDetails struct {
	Date string `json:"date,omitempty"`
}

type ExtraFields struct {
	OrderDate string `json:"order_date,omitempty"`
}

// HistoryRecord is the locally cached document history of one customer.
type HistoryRecord struct {
	Key       string     `json:"key"`
	Customer  string     `json:"customer"`
	Documents []Document `json:"documents"`
}
