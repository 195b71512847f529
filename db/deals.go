// ABOUTME: Deal repository keyed by stage id with the stage name kept in step
// ABOUTME: Deleting a deal removes its schedules but never the referenced customer
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealflow/models"
)

const dealColumns = `id, title, customer_name, customer_id, amount, currency, priority, contact, email, phone,
	address, tax_id, po_number, extra_contacts, notes, expected_close, salesperson, branch, stage_id, stage, created_at`

type DealRepository struct {
	db *sql.DB
}

func NewDealRepository(db *sql.DB) *DealRepository {
	return &DealRepository{db: db}
}

func scanDeal(row scanner) (models.Deal, error) {
	var (
		d                                        models.Deal
		customerName, customerID                 sql.NullString
		contact, email, phone, address, taxID    sql.NullString
		poNumber, extraContacts, salesperson, br sql.NullString
		priority                                 string
		expectedClose                            sql.NullTime
	)

	err := row.Scan(&d.ID, &d.Title, &customerName, &customerID, &d.Amount, &d.Currency, &priority,
		&contact, &email, &phone, &address, &taxID, &poNumber, &extraContacts, &d.Notes,
		&expectedClose, &salesperson, &br, &d.StageID, &d.Stage, &d.CreatedAt)
	if err != nil {
		return models.Deal{}, err
	}

	d.CustomerName = customerName.String
	if customerID.Valid && customerID.String != "" {
		id := customerID.String
		d.CustomerID = &id
	}
	d.Priority = models.ParsePriority(priority)
	d.Contact = contact.String
	d.Email = email.String
	d.Phone = phone.String
	d.Address = address.String
	d.TaxID = taxID.String
	d.PONumber = poNumber.String
	d.Salesperson = salesperson.String
	d.Branch = br.String
	if expectedClose.Valid {
		t := expectedClose.Time
		d.ExpectedClose = &t
	}
	if extraContacts.Valid && extraContacts.String != "" {
		if err := json.Unmarshal([]byte(extraContacts.String), &d.ExtraContacts); err != nil {
			return models.Deal{}, fmt.Errorf("failed to decode extra contacts of deal %s: %w", d.ID, err)
		}
	}
	return d, nil
}

func (r *DealRepository) List(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (r *DealRepository) Get(ctx context.Context, id string) (models.Deal, error) {
	d, err := scanDeal(r.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return models.Deal{}, ErrNotFound
	}
	return d, err
}

// resolveStage finds a stage by id, falling back to its name.
func resolveStage(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, id, name string) (string, string, error) {
	var sid, sname string
	err := q.QueryRowContext(ctx, `SELECT id, name FROM stages WHERE id = ?`, id).Scan(&sid, &sname)
	if err == sql.ErrNoRows && name != "" {
		err = q.QueryRowContext(ctx, `SELECT id, name FROM stages WHERE name = ?`, name).Scan(&sid, &sname)
	}
	if err == sql.ErrNoRows {
		return "", "", ErrUnknownStage
	}
	return sid, sname, err
}

// Create inserts a deal in the stage named by StageID (or, failing that, Stage).
func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	deal.Title = strings.TrimSpace(deal.Title)
	if deal.Title == "" {
		return fmt.Errorf("deal title is required: %w", ErrInvalid)
	}

	stageID, stageName, err := resolveStage(ctx, r.db, deal.StageID, deal.Stage)
	if err != nil {
		return err
	}
	deal.StageID, deal.Stage = stageID, stageName

	deal.ID = uuid.New().String()
	now := time.Now().UTC()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.Priority = models.ParsePriority(string(deal.Priority))

	var extra []byte
	if len(deal.ExtraContacts) > 0 {
		if extra, err = json.Marshal(deal.ExtraContacts); err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO deals (`+dealColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deal.ID, deal.Title, deal.CustomerName, deal.CustomerID, deal.Amount, deal.Currency, string(deal.Priority),
		deal.Contact, deal.Email, deal.Phone, deal.Address, deal.TaxID, deal.PONumber, nullableBytes(extra),
		deal.Notes, deal.ExpectedClose, deal.Salesperson, deal.Branch, deal.StageID, deal.Stage, deal.CreatedAt, now)
	return err
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Update applies a patch. Moving a deal by StageID or by Stage name sets both columns.
func (r *DealRepository) Update(ctx context.Context, id string, patch models.DealPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	set := func(column string, v interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if patch.StageID != nil || patch.Stage != nil {
		var sid, sname string
		if patch.StageID != nil {
			sid = *patch.StageID
		}
		if patch.Stage != nil {
			sname = *patch.Stage
		}
		stageID, stageName, err := resolveStage(ctx, tx, sid, sname)
		if err != nil {
			return err
		}
		set("stage_id", stageID)
		set("stage", stageName)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("deal title is required: %w", ErrInvalid)
		}
		set("title", title)
	}
	if patch.CustomerName != nil {
		set("customer_name", *patch.CustomerName)
	}
	if patch.CustomerID != nil {
		set("customer_id", *patch.CustomerID)
	}
	if patch.Amount != nil {
		set("amount", *patch.Amount)
	}
	if patch.Currency != nil {
		set("currency", *patch.Currency)
	}
	if patch.Priority != nil {
		set("priority", string(models.ParsePriority(string(*patch.Priority))))
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Salesperson != nil {
		set("salesperson", *patch.Salesperson)
	}
	if patch.ExpectedClose != nil {
		set("expected_close", *patch.ExpectedClose)
	}

	args = append(args, id)
	res, err := tx.ExecContext(ctx, `UPDATE deals SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a deal and its schedules. The customer row is never touched.
func (r *DealRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_schedules WHERE deal_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}
