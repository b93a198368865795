package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Rates and derived totals travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Timesheet is a user-owned collection of dated work entries billed at a
// single hourly rate. The owner is set at creation and never reassigned.
// Totals are derived at read time and never stored.
type Timesheet struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Description *string
	Rate        decimal.Decimal
	LineItems   []LineItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineItem is one dated entry of minutes worked within a timesheet. Its
// lifecycle is bound to the parent: items are replaced wholesale on update
// and removed with the parent on delete.
type LineItem struct {
	ID      uuid.UUID
	Date    Date
	Minutes int
	Notes   *string
}
