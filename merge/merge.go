// ABOUTME: Reconciles locally cached business documents with the server's copies
// ABOUTME: Server document numbers win; deleted invoice numbers are purged from every cached history
package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealflow/models"
	"go.uber.org/zap"
)

// HistoryStore is the local document cache. cache.Store satisfies it.
type HistoryStore interface {
	ListAll(ctx context.Context) ([]models.HistoryRecord, error)
	Save(ctx context.Context, record models.HistoryRecord) error
	PurchaseOrders(ctx context.Context) ([]models.Document, error)
	SavePurchaseOrders(ctx context.Context, docs []models.Document) error
}

// DocumentSource lists the server's documents of one kind. *api.Client satisfies it.
type DocumentSource interface {
	Fetch(ctx context.Context, kind models.DocumentKind) ([]models.Document, error)
}

// DocumentDeleter removes a server document.
type DocumentDeleter interface {
	DeleteDocument(ctx context.Context, id string) error
}

// Merge combines local and server documents. Any local entry whose number the
// server also has is dropped; local entries sharing a number with each other are kept.
func Merge(local, server []models.Document) []models.Document {
	seen := make(map[string]struct{}, len(server))
	for _, d := range server {
		seen[numberKey(d.Number)] = struct{}{}
	}

	out := make([]models.Document, 0, len(local)+len(server))
	for _, d := range local {
		if _, ok := seen[numberKey(d.Number)]; ok && d.Number != "" {
			continue
		}
		if d.Source == "" {
			d.Source = models.SourceLocal
		}
		out = append(out, d)
	}
	return append(out, server...)
}

func numberKey(n string) string {
	return strings.TrimSpace(n)
}

// Merger builds display lists from the local cache and the server.
type Merger struct {
	Store  HistoryStore
	Source DocumentSource
	Logger *zap.Logger
}

func (m *Merger) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// List returns the merged and sorted documents of one kind.
func (m *Merger) List(ctx context.Context, kind models.DocumentKind) ([]models.Document, error) {
	local, err := m.Local(ctx, kind)
	if err != nil {
		return nil, err
	}

	var server []models.Document
	if m.Source != nil {
		server, err = m.Source.Fetch(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s documents: %w", kind, err)
		}
	}

	merged := Merge(local, server)
	Sort(kind, merged)
	return merged, nil
}

// Local returns the cached documents of one kind from every history record,
// or from the purchase order list.
func (m *Merger) Local(ctx context.Context, kind models.DocumentKind) ([]models.Document, error) {
	if kind == models.KindPurchaseOrder {
		docs, err := m.Store.PurchaseOrders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read purchase orders: %w", err)
		}
		return docs, nil
	}

	records, err := m.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read document history: %w", err)
	}

	var docs []models.Document
	for _, rec := range records {
		for _, d := range rec.Documents {
			if d.Kind != kind {
				continue
			}
			if d.Customer == "" {
				d.Customer = rec.Customer
			}
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// SaveLocal caches a document that has not reached the server yet.
func (m *Merger) SaveLocal(ctx context.Context, doc models.Document, now time.Time) error {
	doc.Source = models.SourceLocal
	if doc.Kind == models.KindPurchaseOrder {
		if doc.UpdatedAt == nil {
			doc.UpdatedAt = &now
		}
		docs, err := m.Store.PurchaseOrders(ctx)
		if err != nil {
			return fmt.Errorf("failed to read purchase orders: %w", err)
		}
		return m.Store.SavePurchaseOrders(ctx, append(docs, doc))
	}

	if doc.SavedAt == nil {
		doc.SavedAt = &now
	}
	records, err := m.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read document history: %w", err)
	}
	rec := models.HistoryRecord{Key: HistoryKey(doc.Customer), Customer: doc.Customer}
	for _, r := range records {
		if r.Customer == doc.Customer {
			rec = r
			break
		}
	}
	rec.Documents = append(rec.Documents, doc)
	return m.Store.Save(ctx, rec)
}

// HistoryKey is the cache key of a customer's document history.
func HistoryKey(customer string) string {
	return "history:" + customer
}

// Forget removes a document number from every cached history record so a deleted
// server document does not reappear from the cache. Only invoices and billing
// notes are purged this way.
func (m *Merger) Forget(ctx context.Context, kind models.DocumentKind, number string) error {
	if number == "" || (kind != models.KindInvoice && kind != models.KindBillingNote) {
		return nil
	}

	records, err := m.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read document history: %w", err)
	}

	key := numberKey(number)
	for _, rec := range records {
		kept := rec.Documents[:0:0]
		for _, d := range rec.Documents {
			if d.Kind == kind && numberKey(d.Number) == key {
				continue
			}
			kept = append(kept, d)
		}
		if len(kept) == len(rec.Documents) {
			continue
		}
		m.logger().Debug("Purging cached document",
			zap.String("customer", rec.Customer),
			zap.String("number", number))
		rec.Documents = kept
		if err := m.Store.Save(ctx, rec); err != nil {
			return fmt.Errorf("failed to save history for %s: %w", rec.Customer, err)
		}
	}
	return nil
}

// Delete removes a server document and forgets its number locally. A document
// the server no longer has is still forgotten.
func (m *Merger) Delete(ctx context.Context, deleter DocumentDeleter, doc models.Document, notFound func(error) bool) error {
	if doc.ID != "" {
		if err := deleter.DeleteDocument(ctx, doc.ID); err != nil && (notFound == nil || !notFound(err)) {
			return fmt.Errorf("failed to delete %s %s: %w", doc.Kind, doc.Number, err)
		}
	}
	return m.Forget(ctx, doc.Kind, doc.Number)
}
