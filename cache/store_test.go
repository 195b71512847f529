package cache

import (
	"context"
	"testing"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/merge"
	"github.com/harperreed/dealflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ merge.HistoryStore = (*Store)(nil)
	_ api.Session        = (*Store)(nil)
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHistoryRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.HistoryRecord{Customer: "Globex", Documents: []models.Document{
		{Kind: models.KindInvoice, Number: "INV-2"},
	}}))
	require.NoError(t, s.Save(ctx, models.HistoryRecord{Customer: "Acme", Documents: []models.Document{
		{Kind: models.KindQuotation, Number: "QT-1"},
	}}))

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "history:Acme", records[0].Key)
	assert.Equal(t, "QT-1", records[0].Documents[0].Number)
	assert.Equal(t, "history:Globex", records[1].Key)
}

func TestHistoryIgnoresOtherKeys(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "secret"))
	require.NoError(t, s.SavePurchaseOrders(ctx, []models.Document{{Kind: models.KindPurchaseOrder, Number: "PO-1"}}))

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveEmptyRecordDeletes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := models.HistoryRecord{Customer: "Acme", Documents: []models.Document{{Number: "INV-1"}}}
	require.NoError(t, s.Save(ctx, rec))

	rec.Documents = nil
	require.NoError(t, s.Save(ctx, rec))

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPurchaseOrders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	docs, err := s.PurchaseOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, s.SavePurchaseOrders(ctx, []models.Document{{Kind: models.KindPurchaseOrder, Number: "PO-1"}}))
	docs, err = s.PurchaseOrders(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "PO-1", docs[0].Number)
}

func TestSessionToken(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken(ctx, "secret"))
	token, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	require.NoError(t, s.ClearToken(ctx))
	require.NoError(t, s.ClearToken(ctx))
	token, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMergerOverCache(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	m := &merge.Merger{Store: s}

	require.NoError(t, s.Save(ctx, models.HistoryRecord{Customer: "A", Documents: []models.Document{
		{Kind: models.KindInvoice, Number: "INV-7"},
	}}))
	require.NoError(t, s.Save(ctx, models.HistoryRecord{Customer: "B", Documents: []models.Document{
		{Kind: models.KindInvoice, Number: "INV-7"},
		{Kind: models.KindInvoice, Number: "INV-8"},
	}}))

	require.NoError(t, m.Forget(ctx, models.KindInvoice, "INV-7"))

	docs, err := m.List(ctx, models.KindInvoice)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "INV-8", docs[0].Number)
	assert.Equal(t, "B", docs[0].Customer)
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetToken(ctx, "persisted"))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}
