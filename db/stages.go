// ABOUTME: Stage repository with unique names and atomic rename cascade
// ABOUTME: Deleting a stage removes its deals and their schedules in one transaction
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealflow/models"
)

type StageRepository struct {
	db *sql.DB
}

func NewStageRepository(db *sql.DB) *StageRepository {
	return &StageRepository{db: db}
}

// List returns stages ordered by sort_order. Deals are not loaded.
func (r *StageRepository) List(ctx context.Context) ([]models.Stage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, sort_order FROM stages ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stages := []models.Stage{}
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.Name, &s.Order); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (r *StageRepository) Get(ctx context.Context, id string) (models.Stage, error) {
	var s models.Stage
	err := r.db.QueryRowContext(ctx, `SELECT id, name, sort_order FROM stages WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Order)
	if err == sql.ErrNoRows {
		return models.Stage{}, ErrNotFound
	}
	return s, err
}

// Create inserts a stage. The id is assigned here; any client-side id is ignored.
func (r *StageRepository) Create(ctx context.Context, stage *models.Stage) error {
	stage.Name = strings.TrimSpace(stage.Name)
	if stage.Name == "" {
		return fmt.Errorf("stage name is required: %w", ErrInvalid)
	}
	stage.ID = uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stages (id, name, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, stage.ID, stage.Name, stage.Order, now, now)
	if isUniqueViolation(err) {
		return ErrDuplicateStage
	}
	return err
}

// Update applies a patch. A rename rewrites the stage name on every deal in
// the stage inside the same transaction.
func (r *StageRepository) Update(ctx context.Context, id string, patch models.StagePatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return fmt.Errorf("stage name is required: %w", ErrInvalid)
		}
		res, err := tx.ExecContext(ctx, `UPDATE stages SET name = ?, updated_at = ? WHERE id = ?`, name, now, id)
		if isUniqueViolation(err) {
			return ErrDuplicateStage
		}
		if err != nil {
			return err
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE deals SET stage = ?, updated_at = ? WHERE stage_id = ?`, name, now, id); err != nil {
			return fmt.Errorf("failed to cascade stage rename: %w", err)
		}
	}

	if patch.Order != nil {
		res, err := tx.ExecContext(ctx, `UPDATE stages SET sort_order = ?, updated_at = ? WHERE id = ?`, *patch.Order, now, id)
		if err != nil {
			return err
		}
		if err := checkAffected(res); err != nil {
			return err
		}
	}

	if patch.Name == nil && patch.Order == nil {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM stages WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a stage with its deals and their schedules. Customers are kept.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM activity_schedules WHERE deal_id IN (SELECT id FROM deals WHERE stage_id = ?)
	`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM deals WHERE stage_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Seed creates the given stages in order when the table is empty.
func (r *StageRepository) Seed(ctx context.Context, names []string) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stages`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for i, name := range names {
		if err := r.Create(ctx, &models.Stage{Name: name, Order: i}); err != nil {
			return fmt.Errorf("failed to seed stage %q: %w", name, err)
		}
	}
	return nil
}
