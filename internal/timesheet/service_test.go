package timesheet

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billable/timesheet-api/internal/models"
	"github.com/billable/timesheet-api/internal/models/dto"
	"github.com/billable/timesheet-api/internal/storage"
)

// fakeStore is an in-memory TimesheetStore with the same ownership and
// ordering behavior as the Postgres adapter.
type fakeStore struct {
	mu     sync.Mutex
	sheets map[uuid.UUID]models.Timesheet
}

func newFakeStore() *fakeStore {
	return &fakeStore{sheets: make(map[uuid.UUID]models.Timesheet)}
}

func cloneSheet(ts models.Timesheet) models.Timesheet {
	items := make([]models.LineItem, len(ts.LineItems))
	copy(items, ts.LineItems)
	ts.LineItems = items
	return ts
}

func (f *fakeStore) CreateTimesheet(_ context.Context, ts models.Timesheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets[ts.ID] = cloneSheet(ts)
	return nil
}

func (f *fakeStore) FindByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (models.Timesheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts, ok := f.sheets[id]
	if !ok || ts.OwnerID != ownerID {
		return models.Timesheet{}, storage.ErrNotFound
	}
	return cloneSheet(ts), nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID uuid.UUID, skip, take int) ([]models.Timesheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Timesheet
	for _, ts := range f.sheets {
		if ts.OwnerID == ownerID {
			out = append(out, cloneSheet(ts))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if take < len(out) {
		out = out[:take]
	}
	return out, nil
}

func (f *fakeStore) ReplaceTimesheet(_ context.Context, ts models.Timesheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.sheets[ts.ID]
	if !ok || existing.OwnerID != ts.OwnerID {
		return storage.ErrNotFound
	}
	existing.Description = ts.Description
	existing.Rate = ts.Rate
	existing.UpdatedAt = ts.UpdatedAt
	existing.LineItems = ts.LineItems
	f.sheets[ts.ID] = cloneSheet(existing)
	return nil
}

func (f *fakeStore) DeleteTimesheet(_ context.Context, id, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts, ok := f.sheets[id]
	if !ok || ts.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.sheets, id)
	return nil
}

func newTestService(store storage.TimesheetStore) *Service {
	svc := NewService(store)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return svc
}

func strPtr(s string) *string { return &s }

func saveReq(rate string, items ...dto.LineItemInput) dto.SaveTimesheetRequest {
	return dto.SaveTimesheetRequest{
		Description: strPtr("client work"),
		Rate:        decimal.RequireFromString(rate),
		LineItems:   items,
	}
}

func item(date string, minutes int) dto.LineItemInput {
	d, err := models.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return dto.LineItemInput{Date: d, Minutes: minutes}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner,
		saveReq("120.00", item("2024-01-01", 90), item("2024-01-02", 45)))
	require.NoError(t, err)

	assert.Equal(t, 135, created.TotalMinutes)
	assert.True(t, created.TotalHours.Equal(decimal.RequireFromString("2.25")),
		"hours = %s", created.TotalHours)
	assert.True(t, created.TotalCost.Equal(decimal.RequireFromString("270.00")),
		"cost = %s", created.TotalCost)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	again, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  dto.SaveTimesheetRequest
	}{
		{"empty line items", saveReq("100")},
		{"negative minutes", saveReq("100", item("2024-01-01", -1))},
		{"negative rate", saveReq("-0.01", item("2024-01-01", 60))},
		{"missing date", dto.SaveTimesheetRequest{
			Rate:      decimal.NewFromInt(100),
			LineItems: []dto.LineItemInput{{Minutes: 60}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestService(store)
			owner := uuid.New()

			_, err := svc.Create(context.Background(), owner, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Violations)
			assert.Empty(t, store.sheets, "no mutation on validation failure")
		})
	}
}

func TestUpdateReplacesLineItemsWholesale(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, saveReq("100",
		item("2024-01-01", 10), item("2024-01-02", 20), item("2024-01-03", 30)))
	require.NoError(t, err)
	require.Len(t, created.LineItems, 3)

	updated, err := svc.Update(context.Background(), owner, created.ID,
		saveReq("150", item("2024-02-01", 37)))
	require.NoError(t, err)

	require.Len(t, updated.LineItems, 1)
	assert.Equal(t, "2024-02-01", updated.LineItems[0].Date.String())
	assert.Equal(t, 37, updated.TotalMinutes)
	assert.True(t, updated.TotalHours.Equal(decimal.RequireFromString("0.62")),
		"hours = %s", updated.TotalHours)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.LineItems, 1)
}

func TestUpdateValidationLeavesRecordUnchanged(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, saveReq("100", item("2024-01-01", 60)))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), owner, created.ID, saveReq("100"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestOwnershipIsolation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	alice := uuid.New()
	mallory := uuid.New()

	created, err := svc.Create(context.Background(), alice, saveReq("100", item("2024-01-01", 60)))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), mallory, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Update(context.Background(), mallory, created.ID, saveReq("1", item("2024-01-01", 1)))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(context.Background(), mallory, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Alice still sees her record untouched.
	got, err := svc.Get(context.Background(), alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	views, err := svc.List(context.Background(), mallory, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestDeleteIsTerminal(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, saveReq("100", item("2024-01-01", 60)))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), owner, created.ID))

	_, err = svc.Get(context.Background(), owner, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(context.Background(), owner, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	views, err := svc.List(context.Background(), owner, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListOrderingAndPaging(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := svc.Create(context.Background(), owner, saveReq("100", item("2024-01-01", 60)))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	views, err := svc.List(context.Background(), owner, 0, 50)
	require.NoError(t, err)
	require.Len(t, views, 3)
	// Most recently created first.
	assert.Equal(t, ids[2], views[0].ID)
	assert.Equal(t, ids[0], views[2].ID)

	page, err := svc.List(context.Background(), owner, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	clamped, err := svc.List(context.Background(), owner, -5, 1000)
	require.NoError(t, err)
	assert.Len(t, clamped, 3)
}

func TestLineItemsOrderedByDate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, saveReq("100",
		item("2024-03-03", 30), item("2024-01-01", 10), item("2024-02-02", 20)))
	require.NoError(t, err)

	require.Len(t, created.LineItems, 3)
	assert.Equal(t, "2024-01-01", created.LineItems[0].Date.String())
	assert.Equal(t, "2024-02-02", created.LineItems[1].Date.String())
	assert.Equal(t, "2024-03-03", created.LineItems[2].Date.String())
}
