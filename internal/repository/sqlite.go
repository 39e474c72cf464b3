package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout keeps microsecond precision, matching TIMESTAMPTZ in Postgres.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteEventRepository handles persistence for events in SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository constructs a SQLiteEventRepository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Create inserts a fully populated event.
func (r *SQLiteEventRepository) Create(ctx context.Context, e *model.Event) error {
	dates, err := encodeTimes(e.PotentialDates)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (id, code, name, description, creator_name, creator_email, potential_dates, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Code, e.Name, e.Description, e.CreatorName, e.CreatorEmail, dates, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err, "events.code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByCode returns a single event or ErrNotFound.
func (r *SQLiteEventRepository) GetByCode(ctx context.Context, code string) (*model.Event, error) {
	var (
		e              model.Event
		dates, created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, description, creator_name, creator_email, potential_dates, created_at
		 FROM events WHERE code = ?`,
		code,
	).Scan(&e.ID, &e.Code, &e.Name, &e.Description, &e.CreatorName, &e.CreatorEmail, &dates, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e.PotentialDates, err = decodeTimes(dates); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &e, nil
}

// SQLiteAvailabilityRepository handles persistence for availability responses in SQLite.
type SQLiteAvailabilityRepository struct {
	db *sql.DB
}

// NewSQLiteAvailabilityRepository constructs a SQLiteAvailabilityRepository.
func NewSQLiteAvailabilityRepository(db *sql.DB) *SQLiteAvailabilityRepository {
	return &SQLiteAvailabilityRepository{db: db}
}

// Add appends a response.
func (r *SQLiteAvailabilityRepository) Add(ctx context.Context, a *model.AvailabilityResponse) error {
	times, err := encodeTimes(a.AvailableTimes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO availabilities (id, event_id, participant_name, participant_email, available_times, custom_availability, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EventID, a.ParticipantName, a.ParticipantEmail, times, a.CustomAvailability, a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

// ListByEvent returns all responses for an event in submission order.
func (r *SQLiteAvailabilityRepository) ListByEvent(ctx context.Context, eventID string) ([]model.AvailabilityResponse, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, participant_name, participant_email, available_times, custom_availability, created_at
		 FROM availabilities
		 WHERE event_id = ?
		 ORDER BY rowid ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	var out []model.AvailabilityResponse
	for rows.Next() {
		var (
			a              model.AvailabilityResponse
			times, created string
		)
		if err := rows.Scan(&a.ID, &a.EventID, &a.ParticipantName, &a.ParticipantEmail, &times, &a.CustomAvailability, &created); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		if a.AvailableTimes, err = decodeTimes(times); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeTimes(ts []time.Time) (string, error) {
	if ts == nil {
		ts = []time.Time{}
	}
	b, err := json.Marshal(ts)
	if err != nil {
		return "", fmt.Errorf("encode timestamps: %w", err)
	}
	return string(b), nil
}

func decodeTimes(s string) ([]time.Time, error) {
	var ts []time.Time
	if err := json.Unmarshal([]byte(s), &ts); err != nil {
		return nil, fmt.Errorf("decode timestamps: %w", err)
	}
	for i, t := range ts {
		ts[i] = t.UTC()
	}
	return ts, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on column.
func isUniqueViolation(err error, column string) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && strings.Contains(sqErr.Error(), column)
}
