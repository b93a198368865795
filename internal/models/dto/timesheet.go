package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billable/timesheet-api/internal/models"
)

// LineItemInput is one submitted line of a create or update request.
type LineItemInput struct {
	Date    models.Date `json:"date"`
	Minutes int         `json:"minutes"`
	Notes   *string     `json:"notes"`
}

// SaveTimesheetRequest is the body shared by POST and PUT. Updates always
// carry the full desired state; the previous line-item set is discarded.
type SaveTimesheetRequest struct {
	Description *string         `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	LineItems   []LineItemInput `json:"lineItems"`
}

// LineItemView mirrors one persisted line item.
type LineItemView struct {
	ID      uuid.UUID   `json:"id"`
	Date    models.Date `json:"date"`
	Minutes int         `json:"minutes"`
	Notes   *string     `json:"notes"`
}

// TimesheetView is the response shape for every timesheet read. The totals
// are recomputed from the current line items on each response.
type TimesheetView struct {
	ID           uuid.UUID       `json:"id"`
	Description  *string         `json:"description"`
	Rate         decimal.Decimal `json:"rate"`
	TotalMinutes int             `json:"totalMinutes"`
	TotalHours   decimal.Decimal `json:"totalHours"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	LineItems    []LineItemView  `json:"lineItems"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
