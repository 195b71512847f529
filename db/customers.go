// ABOUTME: Customer database operations
// ABOUTME: Customers are referenced by deals but never deleted along with them
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

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row scanner) (models.Customer, error) {
	var c models.Customer
	var taxID, address, phone, email sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &taxID, &address, &phone, &email); err != nil {
		return models.Customer{}, err
	}
	c.TaxID, c.Address, c.Phone, c.Email = taxID.String, address.String, phone.String, email.String
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, tax_id, address, phone, email FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (models.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT id, name, tax_id, address, phone, email FROM customers WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return models.Customer{}, ErrNotFound
	}
	return c, err
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("customer name is required: %w", ErrInvalid)
	}
	c.ID = uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, tax_id, address, phone, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.TaxID, c.Address, c.Phone, c.Email, now, now)
	return err
}

func (r *CustomerRepository) Update(ctx context.Context, id string, patch models.CustomerPatch) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if patch.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *patch.Name)
	}
	if patch.TaxID != nil {
		sets, args = append(sets, "tax_id = ?"), append(args, *patch.TaxID)
	}
	if patch.Address != nil {
		sets, args = append(sets, "address = ?"), append(args, *patch.Address)
	}
	if patch.Phone != nil {
		sets, args = append(sets, "phone = ?"), append(args, *patch.Phone)
	}
	if patch.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *patch.Email)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE customers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Delete removes a customer. Deals keep their customer_id as a dangling lookup.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
