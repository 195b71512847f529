// ABOUTME: Activity schedule repository
// ABOUTME: Schedules belong to one deal and are listed in position order
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

const scheduleColumns = `id, deal_id, due_at, start_at, activity_name, salesperson, customer, completed, position`

type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func scanSchedule(row scanner) (models.ActivitySchedule, error) {
	var (
		s                     models.ActivitySchedule
		dueAt, startAt        sql.NullTime
		salesperson, customer sql.NullString
	)
	if err := row.Scan(&s.ID, &s.DealID, &dueAt, &startAt, &s.ActivityName, &salesperson, &customer, &s.Completed, &s.Position); err != nil {
		return models.ActivitySchedule{}, err
	}
	if dueAt.Valid {
		t := dueAt.Time
		s.DueAt = &t
	}
	if startAt.Valid {
		t := startAt.Time
		s.StartAt = &t
	}
	s.Salesperson = salesperson.String
	s.Customer = customer.String
	return s, nil
}

// List returns every schedule, grouped by deal and ordered by position.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ActivitySchedule, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM activity_schedules ORDER BY deal_id, position, created_at`)
}

func (r *ScheduleRepository) ListForDeal(ctx context.Context, dealID string) ([]models.ActivitySchedule, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM activity_schedules WHERE deal_id = ? ORDER BY position, created_at`, dealID)
}

func (r *ScheduleRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.ActivitySchedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	schedules := []models.ActivitySchedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) Get(ctx context.Context, id string) (models.ActivitySchedule, error) {
	s, err := scanSchedule(r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM activity_schedules WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return models.ActivitySchedule{}, ErrNotFound
	}
	return s, err
}

// Create inserts a schedule for an existing deal.
func (r *ScheduleRepository) Create(ctx context.Context, s *models.ActivitySchedule) error {
	if s.When() == nil {
		return fmt.Errorf("due date is required: %w", ErrInvalid)
	}

	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM deals WHERE id = ?`, s.DealID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("deal %s: %w", s.DealID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	s.ID = uuid.New().String()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activity_schedules (`+scheduleColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.DealID, s.DueAt, s.StartAt, s.ActivityName, s.Salesperson, s.Customer, s.Completed, s.Position, time.Now().UTC())
	return err
}

func (r *ScheduleRepository) Update(ctx context.Context, id string, patch models.SchedulePatch) error {
	var (
		sets []string
		args []interface{}
	)
	if patch.DueAt != nil {
		sets = append(sets, "due_at = ?")
		args = append(args, *patch.DueAt)
	}
	if patch.ActivityName != nil {
		sets = append(sets, "activity_name = ?")
		args = append(args, *patch.ActivityName)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *patch.Position)
	}
	if len(sets) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE activity_schedules SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
