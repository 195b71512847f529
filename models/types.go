// ABOUTME: Data models for the CRM pipeline
// ABOUTME: Defines Stage, Deal, ActivitySchedule, Customer and note fragment structs
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
	Deals []Deal `json:"deals,omitempty"`
}

type Deal struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	CustomerName      string             `json:"customer_name,omitempty"`
	CustomerID        *string            `json:"customer_id,omitempty"`
	Amount            decimal.Decimal    `json:"amount"`
	Currency          string             `json:"currency"`
	Priority          Priority           `json:"priority"`
	Contact           string             `json:"contact,omitempty"`
	Email             string             `json:"email,omitempty"`
	Phone             string             `json:"phone,omitempty"`
	Address           string             `json:"address,omitempty"`
	TaxID             string             `json:"tax_id,omitempty"`
	PONumber          string             `json:"po_number,omitempty"`
	ExtraContacts     []ContactPerson    `json:"extra_contacts,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpectedClose     *time.Time         `json:"expected_close,omitempty"`
	Salesperson       string             `json:"salesperson,omitempty"`
	Branch            string             `json:"branch,omitempty"`
	StageID           string             `json:"stage_id,omitempty"`
	Stage             string             `json:"stage"` // stage name, kept for older clients
	ActivitySchedules []ActivitySchedule `json:"activity_schedules,omitempty"`
}

// ContactPerson is an additional contact at the customer. It has no identity of its own.
type ContactPerson struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Division string `json:"division,omitempty"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
}

type ActivitySchedule struct {
	ID           string     `json:"id"`
	DealID       string     `json:"deal_id"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	StartAt      *time.Time `json:"start_at,omitempty"`
	ActivityName string     `json:"activity_name"`
	Salesperson  string     `json:"salesperson,omitempty"`
	Customer     string     `json:"customer,omitempty"`
	Completed    bool       `json:"completed"`
	Position     int        `json:"position"`
}

// When returns the timestamp the schedule is due: DueAt, or StartAt when no due time is set.
func (s *ActivitySchedule) When() *time.Time {
	if s.DueAt != nil {
		return s.DueAt
	}
	return s.StartAt
}

// State reports the schedule's lifecycle state.
func (s *ActivitySchedule) State() ScheduleState {
	if s.Completed {
		return ScheduleCompleted
	}
	return SchedulePending
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Attachment is a file embedded in a deal note as base64.
type Attachment struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
}

// Fragment is one dated chunk of a deal's note history.
type Fragment struct {
	Stamp       *time.Time   `json:"stamp,omitempty"`
	DateText    string       `json:"date_text,omitempty"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// HasContent reports whether the fragment carries text or attachments.
func (f Fragment) HasContent() bool {
	return strings.TrimSpace(f.Text) != "" || len(f.Attachments) > 0
}

type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps free text onto a Priority; anything unknown is PriorityNone.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	}
	return PriorityNone
}

type ScheduleState string

const (
	SchedulePending   ScheduleState = "pending"
	ScheduleCompleted ScheduleState = "completed"
)

// Default stages seeded into an empty pipeline.
var DefaultStages = []string{
	"Lead",
	"Qualified",
	"Quotation Sent",
	"Negotiation",
	"Closed Won",
	"Closed Lost",
}
