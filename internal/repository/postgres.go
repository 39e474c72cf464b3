package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// EventRepository handles persistence for events in PostgreSQL.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a fully populated event.
// A clash on the code column yields ErrDuplicateCode so the caller can pick another.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, code, name, description, creator_name, creator_email, potential_dates, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Code, e.Name, e.Description, e.CreatorName, e.CreatorEmail, e.PotentialDates, e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "events_code_key" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByCode returns a single event or ErrNotFound.
func (r *EventRepository) GetByCode(ctx context.Context, code string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, code, name, description, creator_name, creator_email, potential_dates, created_at
		 FROM events WHERE code = $1`,
		code,
	).Scan(&e.ID, &e.Code, &e.Name, &e.Description, &e.CreatorName, &e.CreatorEmail, &e.PotentialDates, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	for i, d := range e.PotentialDates {
		e.PotentialDates[i] = d.UTC()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// AvailabilityRepository handles persistence for availability responses in PostgreSQL.
type AvailabilityRepository struct {
	db *pgxpool.Pool
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Add appends a response. The foreign key on event_id rejects responses for
// events that no longer exist.
func (r *AvailabilityRepository) Add(ctx context.Context, a *model.AvailabilityResponse) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO availabilities (id, event_id, participant_name, participant_email, available_times, custom_availability, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.EventID, a.ParticipantName, a.ParticipantEmail, a.AvailableTimes, a.CustomAvailability, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

// ListByEvent returns all responses for an event in submission order.
func (r *AvailabilityRepository) ListByEvent(ctx context.Context, eventID string) ([]model.AvailabilityResponse, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, participant_name, participant_email, available_times, custom_availability, created_at
		 FROM availabilities
		 WHERE event_id = $1
		 ORDER BY seq ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	var out []model.AvailabilityResponse
	for rows.Next() {
		var a model.AvailabilityResponse
		if err := rows.Scan(&a.ID, &a.EventID, &a.ParticipantName, &a.ParticipantEmail, &a.AvailableTimes, &a.CustomAvailability, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		for i, t := range a.AvailableTimes {
			a.AvailableTimes[i] = t.UTC()
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
