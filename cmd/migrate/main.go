// ABOUTME: Migration utility for databases written by older dealflow releases.
// ABOUTME: Provides dry-run and backup capabilities for safe schema upgrades.

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/dealflow/db"
	"github.com/harperreed/dealflow/logging"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func main() {
	dbPath := flag.String("db", db.DefaultPath(), "Path to database file")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before migration")
	flag.Parse()

	logger, err := logging.New("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := migrate(logger, *dbPath, *dryRun, *backup); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migration completed successfully")
}

func migrate(logger *zap.Logger, dbPath string, dryRun, createBackup bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	if createBackup && !dryRun {
		backupPath, err := db.Backup(dbPath, time.Now())
		if err != nil {
			return err
		}
		logger.Info("Backup created", zap.String("path", backupPath))
	}

	database, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()
	database.SetMaxOpenConns(1)

	tables, err := db.Tables(database)
	if err != nil {
		return fmt.Errorf("failed to get current tables: %w", err)
	}
	logger.Info("Current tables", zap.Strings("tables", tables))

	steps, err := db.Migrate(database, dryRun)
	for _, step := range steps {
		if dryRun {
			logger.Info("[DRY RUN] Would " + step)
		} else {
			logger.Info("Applied: " + step)
		}
	}
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		logger.Info("Schema is already up to date")
	}
	return nil
}
