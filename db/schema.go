// ABOUTME: Database schema definitions
// ABOUTME: Handles SQLite table creation for the pipeline, documents and API tokens
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS stages (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stages_sort_order ON stages(sort_order);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	tax_id TEXT,
	address TEXT,
	phone TEXT,
	email TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);

-- customer_id is a lookup-only reference: deleting a deal never touches the customer
CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	customer_name TEXT,
	customer_id TEXT,
	amount TEXT NOT NULL DEFAULT '0',
	currency TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'none' CHECK(priority IN ('none', 'low', 'medium', 'high')),
	contact TEXT,
	email TEXT,
	phone TEXT,
	address TEXT,
	tax_id TEXT,
	po_number TEXT,
	extra_contacts TEXT,
	notes TEXT NOT NULL DEFAULT '',
	expected_close DATETIME,
	salesperson TEXT,
	branch TEXT,
	stage_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (stage_id) REFERENCES stages(id)
);

CREATE INDEX IF NOT EXISTS idx_deals_stage_id ON deals(stage_id);
CREATE INDEX IF NOT EXISTS idx_deals_customer_id ON deals(customer_id);

CREATE TABLE IF NOT EXISTS activity_schedules (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	due_at DATETIME,
	start_at DATETIME,
	activity_name TEXT NOT NULL DEFAULT '',
	salesperson TEXT,
	customer TEXT,
	completed INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_activity_schedules_deal ON activity_schedules(deal_id, position);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL CHECK(kind IN ('quotation', 'invoice', 'billing_note', 'tax_invoice', 'purchase_order')),
	number TEXT NOT NULL,
	customer TEXT,
	saved_at DATETIME,
	updated_at DATETIME,
	details_date TEXT,
	order_date TEXT,
	payload TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
CREATE INDEX IF NOT EXISTS idx_documents_number ON documents(number);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	label TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
