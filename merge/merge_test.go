package merge

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/harperreed/dealflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	records map[string]models.HistoryRecord
	pos     []models.Document
	saves   int
}

func newMemStore(records ...models.HistoryRecord) *memStore {
	s := &memStore{records: map[string]models.HistoryRecord{}}
	for _, r := range records {
		s.records[r.Key] = r
	}
	return s
}

func (s *memStore) ListAll(context.Context) ([]models.HistoryRecord, error) {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.HistoryRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.records[k])
	}
	return out, nil
}

func (s *memStore) Save(_ context.Context, r models.HistoryRecord) error {
	s.saves++
	s.records[r.Key] = r
	return nil
}

func (s *memStore) PurchaseOrders(context.Context) ([]models.Document, error) {
	return s.pos, nil
}

func (s *memStore) SavePurchaseOrders(_ context.Context, docs []models.Document) error {
	s.pos = docs
	return nil
}

type fakeSource struct {
	docs map[models.DocumentKind][]models.Document
	err  error
}

func (f *fakeSource) Fetch(_ context.Context, kind models.DocumentKind) ([]models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[kind], nil
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteDocument(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func doc(kind models.DocumentKind, number, source string) models.Document {
	return models.Document{Kind: kind, Number: number, Source: source}
}

func TestMergeServerWins(t *testing.T) {
	local := []models.Document{
		doc(models.KindInvoice, "QT-100", models.SourceLocal),
		doc(models.KindInvoice, "INV-2", models.SourceLocal),
	}
	server := []models.Document{
		doc(models.KindInvoice, "QT-100", models.SourceServer),
	}

	merged := Merge(local, server)
	require.Len(t, merged, 2)

	var matches []models.Document
	for _, d := range merged {
		if d.Number == "QT-100" {
			matches = append(matches, d)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, models.SourceServer, matches[0].Source)
}

func TestMergeKeepsLocalDuplicates(t *testing.T) {
	local := []models.Document{
		doc(models.KindQuotation, "QT-5", ""),
		doc(models.KindQuotation, "QT-5", ""),
	}

	merged := Merge(local, nil)
	require.Len(t, merged, 2)
	assert.Equal(t, models.SourceLocal, merged[0].Source)
}

func TestMergeIgnoresBlankNumbers(t *testing.T) {
	local := []models.Document{doc(models.KindInvoice, "", models.SourceLocal)}
	server := []models.Document{doc(models.KindInvoice, "", models.SourceServer)}

	assert.Len(t, Merge(local, server), 2)
}

func TestMergerList(t *testing.T) {
	saved := func(day int) *time.Time {
		t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	store := newMemStore(
		models.HistoryRecord{Key: "history:acme", Customer: "Acme", Documents: []models.Document{
			{Kind: models.KindInvoice, Number: "INV-1", SavedAt: saved(1)},
			{Kind: models.KindInvoice, Number: "INV-3", SavedAt: saved(3)},
			{Kind: models.KindQuotation, Number: "QT-9"},
		}},
		models.HistoryRecord{Key: "history:globex", Customer: "Globex", Documents: []models.Document{
			{Kind: models.KindInvoice, Number: "INV-2", Details: models.DocumentDetails{Date: "2024-01-02"}},
		}},
	)
	source := &fakeSource{docs: map[models.DocumentKind][]models.Document{
		models.KindInvoice: {{Kind: models.KindInvoice, Number: "INV-3", SavedAt: saved(4), Source: models.SourceServer}},
	}}
	m := &Merger{Store: store, Source: source}

	docs, err := m.List(context.Background(), models.KindInvoice)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "INV-3", docs[0].Number)
	assert.Equal(t, models.SourceServer, docs[0].Source)
	assert.Equal(t, "INV-2", docs[1].Number)
	assert.Equal(t, "Globex", docs[1].Customer)
	assert.Equal(t, "INV-1", docs[2].Number)
}

func TestMergerListPurchaseOrders(t *testing.T) {
	store := newMemStore()
	store.pos = []models.Document{
		{Kind: models.KindPurchaseOrder, Number: "PO-1", ExtraFields: models.ExtraFields{OrderDate: "2024-02-01"}},
		{Kind: models.KindPurchaseOrder, Number: "PO-2", ExtraFields: models.ExtraFields{OrderDate: "2024-03-01"}},
	}
	m := &Merger{Store: store}

	docs, err := m.List(context.Background(), models.KindPurchaseOrder)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "PO-2", docs[0].Number)
}

func TestMergerListFetchError(t *testing.T) {
	m := &Merger{Store: newMemStore(), Source: &fakeSource{err: errors.New("offline")}}

	_, err := m.List(context.Background(), models.KindInvoice)
	assert.Error(t, err)
}

func TestMergerSaveLocal(t *testing.T) {
	store := newMemStore()
	m := &Merger{Store: store}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.SaveLocal(context.Background(), models.Document{Kind: models.KindInvoice, Number: "INV-1", Customer: "Acme"}, now))
	require.NoError(t, m.SaveLocal(context.Background(), models.Document{Kind: models.KindInvoice, Number: "INV-2", Customer: "Acme"}, now))
	require.NoError(t, m.SaveLocal(context.Background(), models.Document{Kind: models.KindPurchaseOrder, Number: "PO-1"}, now))

	rec := store.records[HistoryKey("Acme")]
	require.Len(t, rec.Documents, 2)
	assert.Equal(t, now, *rec.Documents[0].SavedAt)
	require.Len(t, store.pos, 1)
	assert.Equal(t, now, *store.pos[0].UpdatedAt)
}

func TestForgetPurgesEveryHistory(t *testing.T) {
	store := newMemStore(
		models.HistoryRecord{Key: "history:a", Customer: "A", Documents: []models.Document{
			{Kind: models.KindInvoice, Number: "INV-7"},
			{Kind: models.KindInvoice, Number: "INV-8"},
		}},
		models.HistoryRecord{Key: "history:b", Customer: "B", Documents: []models.Document{
			{Kind: models.KindInvoice, Number: "INV-7"},
			{Kind: models.KindQuotation, Number: "INV-7"},
		}},
		models.HistoryRecord{Key: "history:c", Customer: "C", Documents: []models.Document{
			{Kind: models.KindInvoice, Number: "INV-9"},
		}},
	)
	m := &Merger{Store: store}

	require.NoError(t, m.Forget(context.Background(), models.KindInvoice, "INV-7"))

	assert.Len(t, store.records["history:a"].Documents, 1)
	require.Len(t, store.records["history:b"].Documents, 1)
	assert.Equal(t, models.KindQuotation, store.records["history:b"].Documents[0].Kind)
	assert.Len(t, store.records["history:c"].Documents, 1)
	assert.Equal(t, 2, store.saves, "untouched records are not rewritten")
}

func TestForgetIgnoresQuotations(t *testing.T) {
	store := newMemStore(models.HistoryRecord{Key: "history:a", Customer: "A", Documents: []models.Document{
		{Kind: models.KindQuotation, Number: "QT-1"},
	}})
	m := &Merger{Store: store}

	require.NoError(t, m.Forget(context.Background(), models.KindQuotation, "QT-1"))
	assert.Len(t, store.records["history:a"].Documents, 1)
	assert.Zero(t, store.saves)
}

func TestDeleteForgetsEvenWhenServerCopyIsGone(t *testing.T) {
	notFound := errors.New("not found")
	store := newMemStore(models.HistoryRecord{Key: "history:a", Customer: "A", Documents: []models.Document{
		{Kind: models.KindBillingNote, Number: "BN-1"},
	}})
	m := &Merger{Store: store}
	deleter := &fakeDeleter{err: notFound}

	err := m.Delete(context.Background(), deleter, models.Document{ID: "42", Kind: models.KindBillingNote, Number: "BN-1"},
		func(err error) bool { return errors.Is(err, notFound) })
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, deleter.deleted)
	assert.Empty(t, store.records["history:a"].Documents)
}

func TestDeleteFailureKeepsCache(t *testing.T) {
	store := newMemStore(models.HistoryRecord{Key: "history:a", Customer: "A", Documents: []models.Document{
		{Kind: models.KindInvoice, Number: "INV-1"},
	}})
	m := &Merger{Store: store}

	err := m.Delete(context.Background(), &fakeDeleter{err: errors.New("boom")}, models.Document{ID: "1", Kind: models.KindInvoice, Number: "INV-1"}, nil)
	require.Error(t, err)
	assert.Len(t, store.records["history:a"].Documents, 1)
}
