// ABOUTME: Business document storage served to the merge layer
// ABOUTME: Documents are listed per kind; the JSON payload is stored opaque
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealflow/models"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) List(ctx context.Context, kind models.DocumentKind) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, number, customer, saved_at, updated_at, details_date, order_date, payload
		FROM documents WHERE kind = ? ORDER BY number
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := []models.Document{}
	for rows.Next() {
		var (
			d                                    models.Document
			kindText                             string
			customer, detailsDate, orderDate, pl sql.NullString
			savedAt, updatedAt                   sql.NullTime
		)
		if err := rows.Scan(&d.ID, &kindText, &d.Number, &customer, &savedAt, &updatedAt, &detailsDate, &orderDate, &pl); err != nil {
			return nil, err
		}
		d.Kind = models.DocumentKind(kindText)
		d.Customer = customer.String
		d.Details.Date = detailsDate.String
		d.ExtraFields.OrderDate = orderDate.String
		if savedAt.Valid {
			t := savedAt.Time
			d.SavedAt = &t
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			d.UpdatedAt = &t
		}
		if pl.Valid && pl.String != "" {
			d.Payload = []byte(pl.String)
		}
		d.Source = models.SourceServer
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if _, err := models.ParseDocumentKind(string(d.Kind)); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	d.Number = strings.TrimSpace(d.Number)
	if d.Number == "" {
		return fmt.Errorf("document number is required: %w", ErrInvalid)
	}
	d.ID = uuid.New().String()
	d.Source = models.SourceServer

	var payload interface{}
	if len(d.Payload) > 0 {
		payload = string(d.Payload)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, kind, number, customer, saved_at, updated_at, details_date, order_date, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, string(d.Kind), d.Number, d.Customer, d.SavedAt, d.UpdatedAt, d.Details.Date, d.ExtraFields.OrderDate, payload)
	return err
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
