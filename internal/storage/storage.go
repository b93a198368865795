package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/billable/timesheet-api/internal/models"
)

// ErrNotFound indicates a record does not exist or is not visible to the
// caller. Ownership mismatches surface as this same error so that other
// users' records are indistinguishable from absent ones.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

// TimesheetStore captures persistence for timesheets and their line items.
// Multi-step mutations (create, replace, delete) execute as a single atomic
// unit, so a cancelled request leaves either the old or the new state fully
// intact, never a mix.
type TimesheetStore interface {
	CreateTimesheet(ctx context.Context, ts models.Timesheet) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (models.Timesheet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, skip, take int) ([]models.Timesheet, error)
	// ReplaceTimesheet updates description, rate, and updated_at of the owned
	// record identified by ts.ID/ts.OwnerID and swaps the entire line-item
	// set for ts.LineItems.
	ReplaceTimesheet(ctx context.Context, ts models.Timesheet) error
	// DeleteTimesheet removes the owned record and all of its line items.
	DeleteTimesheet(ctx context.Context, id, ownerID uuid.UUID) error
}
