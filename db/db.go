// ABOUTME: Database connection management and initialization
// ABOUTME: Handles opening SQLite database with WAL mode and foreign keys at XDG path
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateStage = errors.New("a stage with that name already exists")
	ErrUnknownStage   = errors.New("stage does not exist")
	ErrInvalid        = errors.New("invalid record")
)

// DefaultPath is the database location under the XDG data home.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "dealflow", "dealflow.db")
}

func OpenDatabase(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors).
	// A single connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// Repositories bundles every repository over one connection.
type Repositories struct {
	Stages    *StageRepository
	Deals     *DealRepository
	Schedules *ScheduleRepository
	Customers *CustomerRepository
	Documents *DocumentRepository
	Tokens    *TokenRepository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Stages:    NewStageRepository(db),
		Deals:     NewDealRepository(db),
		Schedules: NewScheduleRepository(db),
		Customers: NewCustomerRepository(db),
		Documents: NewDocumentRepository(db),
		Tokens:    NewTokenRepository(db),
	}
}
