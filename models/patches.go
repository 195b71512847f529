// ABOUTME: Partial update payloads shared by the REST client and the server repositories
// ABOUTME: Nil fields are left unchanged and omitted from the JSON body
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StagePatch struct {
	Name  *string `json:"name,omitempty"`
	Order *int    `json:"order,omitempty"`
}

// DealPatch updates a deal. Setting StageID moves the deal; Stage is accepted
// on its own from clients that still address stages by name.
type DealPatch struct {
	Title         *string          `json:"title,omitempty"`
	Stage         *string          `json:"stage,omitempty"`
	StageID       *string          `json:"stage_id,omitempty"`
	CustomerName  *string          `json:"customer_name,omitempty"`
	CustomerID    *string          `json:"customer_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Priority      *Priority        `json:"priority,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Salesperson   *string          `json:"salesperson,omitempty"`
	ExpectedClose *time.Time       `json:"expected_close,omitempty"`
}

type SchedulePatch struct {
	DueAt        *time.Time `json:"due_at,omitempty"`
	ActivityName *string    `json:"activity_name,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	Position     *int       `json:"position,omitempty"`
}

type CustomerPatch struct {
	Name    *string `json:"name,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}
