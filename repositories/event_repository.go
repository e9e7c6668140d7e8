package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campushq/event-registration/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventTitleConflict = errors.New("event title conflict for this coordinator")
	ErrEventInvalidOwner  = errors.New("invalid event owner reference")
)

type ListEventsFilter struct {
	Category  *models.EventCategory
	Status    *models.EventStatus
	CreatedBy *int
	Limit     int
	Offset    int
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id int, status models.EventStatus) error
	UpdateImageKey(ctx context.Context, id int, imageKey *string) error
	Delete(ctx context.Context, id int) error

	// TryReserve atomically grants one capacity slot if the event is not full.
	// The increment is a single conditional UPDATE, so under concurrent calls
	// against one free slot exactly one caller observes granted == true.
	TryReserve(ctx context.Context, id int) (bool, *models.CapacitySnapshot, error)
	// Release atomically returns one slot, floored at zero. Idempotency against
	// double-release is the caller's responsibility via the registration state.
	Release(ctx context.Context, id int) (*models.CapacitySnapshot, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `
	id, title, description, date, venue, category,
	team_size_min, team_size_max, entry_fee, upi_id, upi_name,
	accepts_online_payment, accepts_offline_payment, custom_fields,
	max_capacity, current_registrations, status, image_key, created_by, created_at`

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	customFields, err := marshalJSONB(e.CustomFields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (
			title, description, date, venue, category,
			team_size_min, team_size_max, entry_fee, upi_id, upi_name,
			accepts_online_payment, accepts_offline_payment, custom_fields,
			max_capacity, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, current_registrations, created_at`

	err = r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Date, e.Venue, e.Category,
		e.TeamSizeMin, e.TeamSizeMax, e.EntryFee, e.UPIID, e.UPIName,
		e.AcceptsOnlinePayment, e.AcceptsOfflinePayment, customFields,
		e.MaxCapacity, e.Status, e.CreatedBy,
	).Scan(&e.ID, &e.CurrentRegistrations, &e.CreatedAt)

	return r.handleEventError(err, "failed to create event")
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT` + eventColumns + ` FROM events WHERE id = $1`
	e, err := r.scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *postgresEventRepository) List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error) {
	query := `SELECT` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argID)
		args = append(args, *filter.Category)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.CreatedBy != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argID)
		args = append(args, *filter.CreatedBy)
		argID++
	}
	query += " ORDER BY date ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update rewrites the organizer-editable fields. current_registrations is
// deliberately untouched: the counter moves only through TryReserve/Release.
func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	customFields, err := marshalJSONB(e.CustomFields)
	if err != nil {
		return err
	}

	query := `
		UPDATE events SET
			title = $1, description = $2, date = $3, venue = $4, category = $5,
			team_size_min = $6, team_size_max = $7, entry_fee = $8,
			upi_id = $9, upi_name = $10,
			accepts_online_payment = $11, accepts_offline_payment = $12,
			custom_fields = $13, max_capacity = $14
		WHERE id = $15`

	result, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.Date, e.Venue, e.Category,
		e.TeamSizeMin, e.TeamSizeMax, e.EntryFee, e.UPIID, e.UPIName,
		e.AcceptsOnlinePayment, e.AcceptsOfflinePayment, customFields,
		e.MaxCapacity, e.ID,
	)
	if err != nil {
		return r.handleEventError(err, "failed to update event")
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateStatus(ctx context.Context, id int, status models.EventStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateImageKey(ctx context.Context, id int, imageKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET image_key = $1 WHERE id = $2`, imageKey, id)
	if err != nil {
		return fmt.Errorf("failed to update event image key: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) TryReserve(ctx context.Context, id int) (bool, *models.CapacitySnapshot, error) {
	snap := &models.CapacitySnapshot{EventID: id}
	err := r.db.QueryRowContext(ctx, `
		UPDATE events
		SET current_registrations = current_registrations + 1
		WHERE id = $1 AND current_registrations < max_capacity
		RETURNING current_registrations, max_capacity`,
		id,
	).Scan(&snap.CurrentRegistrations, &snap.MaxCapacity)

	if err == nil {
		return true, snap, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, nil, fmt.Errorf("%w: failed to reserve capacity: %v", ErrUnavailable, err)
	}

	// Zero rows: the event is either full or absent. Read back to tell apart.
	err = r.db.QueryRowContext(ctx,
		`SELECT current_registrations, max_capacity FROM events WHERE id = $1`,
		id,
	).Scan(&snap.CurrentRegistrations, &snap.MaxCapacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, ErrEventNotFound
		}
		return false, nil, fmt.Errorf("%w: failed to read capacity: %v", ErrUnavailable, err)
	}
	return false, snap, nil
}

func (r *postgresEventRepository) Release(ctx context.Context, id int) (*models.CapacitySnapshot, error) {
	snap := &models.CapacitySnapshot{EventID: id}
	err := r.db.QueryRowContext(ctx, `
		UPDATE events
		SET current_registrations = GREATEST(current_registrations - 1, 0)
		WHERE id = $1
		RETURNING current_registrations, max_capacity`,
		id,
	).Scan(&snap.CurrentRegistrations, &snap.MaxCapacity)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("%w: failed to release capacity: %v", ErrUnavailable, err)
	}
	return snap, nil
}

func (r *postgresEventRepository) scanEvent(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Event, error) {
	e := &models.Event{}
	var customFields []byte
	err := rowScanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Venue, &e.Category,
		&e.TeamSizeMin, &e.TeamSizeMax, &e.EntryFee, &e.UPIID, &e.UPIName,
		&e.AcceptsOnlinePayment, &e.AcceptsOfflinePayment, &customFields,
		&e.MaxCapacity, &e.CurrentRegistrations, &e.Status, &e.ImageKey,
		&e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(customFields, &e.CustomFields); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *postgresEventRepository) handleEventError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "events_created_by_title_key" {
				return ErrEventTitleConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "events_created_by_fkey" {
				return ErrEventInvalidOwner
			}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
