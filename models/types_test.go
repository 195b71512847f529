// ABOUTME: Tests for pipeline data models
// ABOUTME: Validates priority parsing, schedule timestamps and temp id generation
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("High"))
	assert.Equal(t, PriorityLow, ParsePriority(" low "))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityNone, ParsePriority(""))
	assert.Equal(t, PriorityNone, ParsePriority("urgent"))
}

func TestActivityScheduleWhenFallsBackToStart(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	due := start.Add(time.Hour)

	s := ActivitySchedule{StartAt: &start}
	require.NotNil(t, s.When())
	assert.True(t, s.When().Equal(start))

	s.DueAt = &due
	assert.True(t, s.When().Equal(due))

	assert.Nil(t, (&ActivitySchedule{}).When())
}

func TestActivityScheduleState(t *testing.T) {
	s := ActivitySchedule{}
	assert.Equal(t, SchedulePending, s.State())
	s.Completed = true
	assert.Equal(t, ScheduleCompleted, s.State())
}

func TestTempIDs(t *testing.T) {
	a := NewTempID()
	b := NewTempID()

	assert.NotEqual(t, a, b)
	assert.True(t, IsTempID(a))
	assert.True(t, IsTempID(""))
	assert.False(t, IsTempID("7f4c2b7e-9d0a-4b0e-8a8e-4c1f0d2b9e11"))
	assert.Less(t, a, b, "temp ids should sort in creation order")
}

func TestDealAmountDecodesNumbersAndStrings(t *testing.T) {
	var d Deal
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Acme","amount":1000.50,"currency":"฿"}`), &d))
	assert.True(t, d.Amount.Equal(decimal.RequireFromString("1000.5")))

	require.NoError(t, json.Unmarshal([]byte(`{"title":"Acme","amount":"250"}`), &d))
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(250)))
}

func TestFragmentHasContent(t *testing.T) {
	assert.False(t, Fragment{Text: "   "}.HasContent())
	assert.True(t, Fragment{Text: "call back"}.HasContent())
	assert.True(t, Fragment{Attachments: []Attachment{{Type: "image/png", Name: "a.png", Data: "AAAA"}}}.HasContent())
}

func TestParseDocumentKind(t *testing.T) {
	k, err := ParseDocumentKind("tax_invoice")
	require.NoError(t, err)
	assert.Equal(t, KindTaxInvoice, k)

	_, err = ParseDocumentKind("receipt")
	assert.Error(t, err)
}
