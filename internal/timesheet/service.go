package timesheet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/billable/timesheet-api/internal/models"
	"github.com/billable/timesheet-api/internal/models/dto"
	"github.com/billable/timesheet-api/internal/storage"
)

const (
	maxDescriptionLen = 2000
	maxNotesLen       = 1000

	// MaxTake caps a single list page.
	MaxTake = 200
	// DefaultTake is the page size when the caller does not ask for one.
	DefaultTake = 50
)

// ValidationError reports every violation found in a request. It is built
// before any store call, so a failing request performs no mutation.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid timesheet: " + strings.Join(e.Violations, "; ")
}

// Service orchestrates validation, ownership enforcement, and persistence
// for timesheets. Every operation is scoped to the owner id resolved by the
// authentication middleware; records of other users surface uniformly as
// storage.ErrNotFound. The service holds no state between requests.
type Service struct {
	store storage.TimesheetStore
	now   func() time.Time
}

// NewService wires a service over the given store.
func NewService(store storage.TimesheetStore) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and persists a new timesheet owned by owner, returning
// its view with freshly derived totals.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, req dto.SaveTimesheetRequest) (dto.TimesheetView, error) {
	if err := validate(req); err != nil {
		return dto.TimesheetView{}, err
	}
	now := s.now()
	ts := models.Timesheet{
		ID:          uuid.New(),
		OwnerID:     owner,
		Description: req.Description,
		Rate:        req.Rate,
		LineItems:   newLineItems(req.LineItems),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTimesheet(ctx, ts); err != nil {
		return dto.TimesheetView{}, fmt.Errorf("create timesheet: %w", err)
	}
	return toView(ts), nil
}

// Get returns the timesheet only if it exists and belongs to owner.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (dto.TimesheetView, error) {
	ts, err := s.store.FindByIDAndOwner(ctx, id, owner)
	if err != nil {
		return dto.TimesheetView{}, err
	}
	return toView(ts), nil
}

// List returns the owner's timesheets ordered by creation time descending.
// A negative skip is treated as zero and take is clamped to 1..MaxTake.
func (s *Service) List(ctx context.Context, owner uuid.UUID, skip, take int) ([]dto.TimesheetView, error) {
	if skip < 0 {
		skip = 0
	}
	if take < 1 {
		take = 1
	}
	if take > MaxTake {
		take = MaxTake
	}
	sheets, err := s.store.ListByOwner(ctx, owner, skip, take)
	if err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	views := make([]dto.TimesheetView, 0, len(sheets))
	for _, ts := range sheets {
		views = append(views, toView(ts))
	}
	return views, nil
}

// Update replaces the description, rate, and the entire line-item set of an
// owned timesheet, then returns the reloaded view. This is a wholesale
// replacement, not a merge: the caller always submits the full desired
// state. Concurrent updates of the same record are not serialized; the last
// write to commit wins.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, req dto.SaveTimesheetRequest) (dto.TimesheetView, error) {
	if err := validate(req); err != nil {
		return dto.TimesheetView{}, err
	}
	ts := models.Timesheet{
		ID:          id,
		OwnerID:     owner,
		Description: req.Description,
		Rate:        req.Rate,
		LineItems:   newLineItems(req.LineItems),
		UpdatedAt:   s.now(),
	}
	if err := s.store.ReplaceTimesheet(ctx, ts); err != nil {
		return dto.TimesheetView{}, err
	}
	return s.Get(ctx, owner, id)
}

// Delete removes an owned timesheet together with all of its line items.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.store.DeleteTimesheet(ctx, id, owner)
}

func validate(req dto.SaveTimesheetRequest) error {
	var violations []string
	if req.Rate.IsNegative() {
		violations = append(violations, "rate must be >= 0")
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
		violations = append(violations, fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
	}
	if len(req.LineItems) == 0 {
		violations = append(violations, "at least one line item is required")
	}
	for i, li := range req.LineItems {
		if li.Date.IsZero() {
			violations = append(violations, fmt.Sprintf("lineItems[%d]: date is required", i))
		}
		if li.Minutes < 0 {
			violations = append(violations, fmt.Sprintf("lineItems[%d]: minutes must be >= 0", i))
		}
		if li.Notes != nil && utf8.RuneCountInString(*li.Notes) > maxNotesLen {
			violations = append(violations, fmt.Sprintf("lineItems[%d]: notes must be at most %d characters", i, maxNotesLen))
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func newLineItems(inputs []dto.LineItemInput) []models.LineItem {
	items := make([]models.LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = models.LineItem{
			ID:      uuid.New(),
			Date:    in.Date,
			Minutes: in.Minutes,
			Notes:   in.Notes,
		}
	}
	return items
}

// toView derives the response shape, line items ordered by date ascending
// with the id as a tiebreak so repeated reads are byte-identical.
func toView(ts models.Timesheet) dto.TimesheetView {
	items := make([]models.LineItem, len(ts.LineItems))
	copy(items, ts.LineItems)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.Before(items[j].Date.Time)
		}
		return items[i].ID.String() < items[j].ID.String()
	})

	minutes := make([]int, len(items))
	views := make([]dto.LineItemView, len(items))
	for i, li := range items {
		minutes[i] = li.Minutes
		views[i] = dto.LineItemView{ID: li.ID, Date: li.Date, Minutes: li.Minutes, Notes: li.Notes}
	}
	totals := ComputeTotals(ts.Rate, minutes)

	return dto.TimesheetView{
		ID:           ts.ID,
		Description:  ts.Description,
		Rate:         ts.Rate,
		TotalMinutes: totals.Minutes,
		TotalHours:   totals.Hours,
		TotalCost:    totals.Cost,
		LineItems:    views,
		CreatedAt:    ts.CreatedAt,
		UpdatedAt:    ts.UpdatedAt,
	}
}
