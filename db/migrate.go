// ABOUTME: Upgrades databases written by older dealflow releases
// ABOUTME: Adds columns that later schemas rely on and backfills them from existing rows
package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"
)

// columnUpgrade adds one column to an existing table and fills it in.
type columnUpgrade struct {
	table    string
	column   string
	add      string
	backfill string
}

// Older releases stored a deal's stage by name only and kept schedules unordered.
var columnUpgrades = []columnUpgrade{
	{
		table:  "deals",
		column: "stage_id",
		add:    "ALTER TABLE deals ADD COLUMN stage_id TEXT NOT NULL DEFAULT ''",
		backfill: `UPDATE deals SET stage_id = COALESCE(
			(SELECT id FROM stages WHERE stages.name = deals.stage), '')
			WHERE stage_id = ''`,
	},
	{
		table:  "activity_schedules",
		column: "completed",
		add:    "ALTER TABLE activity_schedules ADD COLUMN completed INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:  "activity_schedules",
		column: "position",
		add:    "ALTER TABLE activity_schedules ADD COLUMN position INTEGER NOT NULL DEFAULT 0",
		backfill: `UPDATE activity_schedules SET position = (
			SELECT COUNT(*) FROM activity_schedules s
			WHERE s.deal_id = activity_schedules.deal_id
			AND (s.created_at < activity_schedules.created_at
				OR (s.created_at = activity_schedules.created_at AND s.id < activity_schedules.id)))`,
	},
}

// Tables lists the user tables in the database.
func Tables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func columns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Migrate brings the database up to the current schema and returns the steps it
// took. With dryRun set it only reports them.
func Migrate(db *sql.DB, dryRun bool) ([]string, error) {
	tables, err := Tables(db)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}

	var steps []string
	for _, up := range columnUpgrades {
		if !present[up.table] {
			continue
		}
		cols, err := columns(db, up.table)
		if err != nil {
			return steps, fmt.Errorf("failed to read columns of %s: %w", up.table, err)
		}
		if cols[up.column] {
			continue
		}

		steps = append(steps, fmt.Sprintf("add column %s.%s", up.table, up.column))
		if dryRun {
			continue
		}
		if _, err := db.Exec(up.add); err != nil {
			return steps, fmt.Errorf("failed to add %s.%s: %w", up.table, up.column, err)
		}
		if up.backfill != "" {
			if _, err := db.Exec(up.backfill); err != nil {
				return steps, fmt.Errorf("failed to backfill %s.%s: %w", up.table, up.column, err)
			}
		}
	}

	for _, t := range []string{"stages", "customers", "deals", "activity_schedules", "documents", "sessions"} {
		if !present[t] {
			steps = append(steps, "create table "+t)
		}
	}

	if dryRun {
		return steps, nil
	}
	if err := InitSchema(db); err != nil {
		return steps, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return steps, nil
}

// Backup copies the database file next to itself with a timestamp suffix.
func Backup(path string, now time.Time) (string, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, now.Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}
