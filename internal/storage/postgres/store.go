package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billable/timesheet-api/internal/models"
	"github.com/billable/timesheet-api/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore      = (*Store)(nil)
	_ storage.TimesheetStore = (*Store)(nil)
)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for users and timesheets.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool, registers the decimal codec for numeric columns, and
// applies migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS timesheets (
			id UUID PRIMARY KEY,
			description TEXT,
			rate NUMERIC(14,2) NOT NULL DEFAULT 0,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS timesheets_owner_created_idx ON timesheets (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS timesheet_line_items (
			id UUID PRIMARY KEY,
			timesheet_id UUID NOT NULL REFERENCES timesheets(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			minutes INT NOT NULL CHECK (minutes >= 0),
			notes TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS line_items_timesheet_idx ON timesheet_line_items (timesheet_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (id, email, password_hash)
	VALUES ($1, $2, $3)
	RETURNING created_at;
	`
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
	SELECT id, email, password_hash, created_at
	FROM users
	WHERE email = $1;
	`
	var user models.User
	row := s.pool.QueryRow(ctx, query, email)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// CreateTimesheet inserts the parent row and its line items in one
// transaction.
func (s *Store) CreateTimesheet(ctx context.Context, ts models.Timesheet) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		const query = `
		INSERT INTO timesheets (id, description, rate, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6);
		`
		if _, err := tx.Exec(ctx, query, ts.ID, ts.Description, ts.Rate, ts.OwnerID, ts.CreatedAt, ts.UpdatedAt); err != nil {
			return fmt.Errorf("insert timesheet: %w", err)
		}
		return insertLineItems(ctx, tx, ts.ID, ts.LineItems)
	})
}

// FindByIDAndOwner fetches one timesheet with its line items ordered by
// date. An id owned by another user yields ErrNotFound.
func (s *Store) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (models.Timesheet, error) {
	const query = `
	SELECT id, description, rate, user_id, created_at, updated_at
	FROM timesheets
	WHERE id = $1 AND user_id = $2;
	`
	var ts models.Timesheet
	row := s.pool.QueryRow(ctx, query, id, ownerID)
	if err := row.Scan(&ts.ID, &ts.Description, &ts.Rate, &ts.OwnerID, &ts.CreatedAt, &ts.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Timesheet{}, storage.ErrNotFound
		}
		return models.Timesheet{}, fmt.Errorf("select timesheet: %w", err)
	}

	items, err := s.lineItemsFor(ctx, []uuid.UUID{ts.ID})
	if err != nil {
		return models.Timesheet{}, err
	}
	ts.LineItems = items[ts.ID]
	return ts, nil
}

// ListByOwner returns a page of the owner's timesheets, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID, skip, take int) ([]models.Timesheet, error) {
	const query = `
	SELECT id, description, rate, user_id, created_at, updated_at
	FROM timesheets
	WHERE user_id = $1
	ORDER BY created_at DESC, id
	LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, ownerID, take, skip)
	if err != nil {
		return nil, fmt.Errorf("select timesheets: %w", err)
	}
	defer rows.Close()

	var sheets []models.Timesheet
	var ids []uuid.UUID
	for rows.Next() {
		var ts models.Timesheet
		if err := rows.Scan(&ts.ID, &ts.Description, &ts.Rate, &ts.OwnerID, &ts.CreatedAt, &ts.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan timesheet: %w", err)
		}
		sheets = append(sheets, ts)
		ids = append(ids, ts.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timesheets: %w", err)
	}
	if len(sheets) == 0 {
		return nil, nil
	}

	items, err := s.lineItemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sheets {
		sheets[i].LineItems = items[sheets[i].ID]
	}
	return sheets, nil
}

// ReplaceTimesheet updates the parent fields and swaps the full line-item
// set in one transaction: either the old or the new set is visible to
// readers, never a mix.
func (s *Store) ReplaceTimesheet(ctx context.Context, ts models.Timesheet) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		const update = `
		UPDATE timesheets
		SET description = $1, rate = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5;
		`
		tag, err := tx.Exec(ctx, update, ts.Description, ts.Rate, ts.UpdatedAt, ts.ID, ts.OwnerID)
		if err != nil {
			return fmt.Errorf("update timesheet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM timesheet_line_items WHERE timesheet_id = $1;`, ts.ID); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		return insertLineItems(ctx, tx, ts.ID, ts.LineItems)
	})
}

// DeleteTimesheet removes children then parent as one atomic unit. The
// ownership filter rides on both statements so nothing is touched unless the
// record belongs to the caller.
func (s *Store) DeleteTimesheet(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		const deleteItems = `
		DELETE FROM timesheet_line_items
		WHERE timesheet_id IN (SELECT id FROM timesheets WHERE id = $1 AND user_id = $2);
		`
		if _, err := tx.Exec(ctx, deleteItems, id, ownerID); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM timesheets WHERE id = $1 AND user_id = $2;`, id, ownerID)
		if err != nil {
			return fmt.Errorf("delete timesheet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func insertLineItems(ctx context.Context, tx pgx.Tx, parent uuid.UUID, items []models.LineItem) error {
	const query = `
	INSERT INTO timesheet_line_items (id, timesheet_id, date, minutes, notes)
	VALUES ($1, $2, $3, $4, $5);
	`
	batch := &pgx.Batch{}
	for _, li := range items {
		batch.Queue(query, li.ID, parent, li.Date.Time, li.Minutes, li.Notes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}

func (s *Store) lineItemsFor(ctx context.Context, parents []uuid.UUID) (map[uuid.UUID][]models.LineItem, error) {
	const query = `
	SELECT id, timesheet_id, date, minutes, notes
	FROM timesheet_line_items
	WHERE timesheet_id = ANY($1::uuid[])
	ORDER BY date, id;
	`
	ids := make([]string, len(parents))
	for i, id := range parents {
		ids[i] = id.String()
	}
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("select line items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]models.LineItem)
	for rows.Next() {
		var li models.LineItem
		var parent uuid.UUID
		var date time.Time
		if err := rows.Scan(&li.ID, &parent, &date, &li.Minutes, &li.Notes); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.Date = models.DateOf(date)
		out[parent] = append(out[parent], li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return out, nil
}
