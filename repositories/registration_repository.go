package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campushq/event-registration/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrationConflict surfaces the partial unique index over active
	// registrations: one non-terminal registration per (event, user).
	ErrRegistrationConflict          = errors.New("user already has an active registration for this event")
	ErrRegistrationInvalidTransition = errors.New("registration is not in a state that allows this transition")
	ErrRegistrationInvalidEvent      = errors.New("invalid event reference")
	ErrRegistrationInvalidUser       = errors.New("invalid user reference")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	FindActiveByEventAndUser(ctx context.Context, eventID, userID int) (*models.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]models.Registration, error)
	ListByEvent(ctx context.Context, eventID int, statusFilter *models.RegistrationStatus) ([]models.Registration, error)
	CountByEventAndStatus(ctx context.Context, eventID int, status models.RegistrationStatus) (int, error)

	// Cancel marks the registration cancelled if it is owned by userID and not
	// yet terminal, returning the status it held before and its event. The
	// state gate and the update run as one statement, so racing transitions
	// see exactly one winner.
	Cancel(ctx context.Context, id, userID int) (models.RegistrationStatus, int, error)
	// Approve moves pending → confirmed and records the reviewer.
	Approve(ctx context.Context, id, reviewerID int, reviewedAt time.Time) error
	// Reject moves pending → rejected with a reason.
	Reject(ctx context.Context, id, reviewerID int, reviewedAt time.Time, reason string) error

	UpdateProofKey(ctx context.Context, id, userID int, proofKey string) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `
	id, event_id, user_id, team_name, team_members, custom_field_responses,
	payment_mode, payment_status, payment_amount, transaction_ref, proof_key,
	registration_status, reviewer_id, reviewed_at, rejection_reason, created_at`

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	teamMembers, err := marshalJSONB(reg.TeamMembers)
	if err != nil {
		return err
	}
	responses, err := marshalJSONB(reg.CustomFieldResponses)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO registrations (
			event_id, user_id, team_name, team_members, custom_field_responses,
			payment_mode, payment_status, payment_amount, transaction_ref, proof_key,
			registration_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		reg.EventID, reg.UserID, reg.TeamName, teamMembers, responses,
		reg.PaymentMode, reg.PaymentStatus, reg.PaymentAmount, reg.TransactionRef, reg.ProofKey,
		reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "registrations_active_event_user_key" {
					return ErrRegistrationConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_event_id_fkey":
					return ErrRegistrationInvalidEvent
				case "registrations_user_id_fkey":
					return ErrRegistrationInvalidUser
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresRegistrationRepository) FindActiveByEventAndUser(ctx context.Context, eventID, userID int) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND user_id = $2
		  AND registration_status IN ('pending', 'confirmed')`
	return r.findOne(ctx, query, eventID, userID)
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by user: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresRegistrationRepository) ListByEvent(ctx context.Context, eventID int, statusFilter *models.RegistrationStatus) ([]models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1`
	args := []interface{}{eventID}

	if statusFilter != nil {
		query += ` AND registration_status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by event: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresRegistrationRepository) CountByEventAndStatus(ctx context.Context, eventID int, status models.RegistrationStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND registration_status = $2`,
		eventID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) Cancel(ctx context.Context, id, userID int) (models.RegistrationStatus, int, error) {
	var previous models.RegistrationStatus
	var eventID int
	err := r.db.QueryRowContext(ctx, `
		UPDATE registrations r
		SET registration_status = 'cancelled'
		FROM (
			SELECT id, registration_status
			FROM registrations
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		) old
		WHERE r.id = old.id AND old.registration_status IN ('pending', 'confirmed')
		RETURNING old.registration_status, r.event_id`,
		id, userID,
	).Scan(&previous, &eventID)

	if err == nil {
		return previous, eventID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("failed to cancel registration: %w", err)
	}
	return "", 0, r.classifyMissedTransition(ctx, id, &userID)
}

func (r *postgresRegistrationRepository) Approve(ctx context.Context, id, reviewerID int, reviewedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations r
		SET registration_status = 'confirmed',
		    payment_status = 'verified',
		    reviewer_id = $2,
		    reviewed_at = $3
		FROM (
			SELECT id, registration_status
			FROM registrations
			WHERE id = $1
			FOR UPDATE
		) old
		WHERE r.id = old.id AND old.registration_status = 'pending'`,
		id, reviewerID, reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to approve registration: %w", err)
	}
	if err := checkAffectedRows(result, sql.ErrNoRows); err != nil {
		return r.classifyMissedTransition(ctx, id, nil)
	}
	return nil
}

func (r *postgresRegistrationRepository) Reject(ctx context.Context, id, reviewerID int, reviewedAt time.Time, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations r
		SET registration_status = 'rejected',
		    payment_status = 'rejected',
		    reviewer_id = $2,
		    reviewed_at = $3,
		    rejection_reason = $4
		FROM (
			SELECT id, registration_status
			FROM registrations
			WHERE id = $1
			FOR UPDATE
		) old
		WHERE r.id = old.id AND old.registration_status = 'pending'`,
		id, reviewerID, reviewedAt, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to reject registration: %w", err)
	}
	if err := checkAffectedRows(result, sql.ErrNoRows); err != nil {
		return r.classifyMissedTransition(ctx, id, nil)
	}
	return nil
}

func (r *postgresRegistrationRepository) UpdateProofKey(ctx context.Context, id, userID int, proofKey string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET proof_key = $1 WHERE id = $2 AND user_id = $3`,
		proofKey, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update proof key: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

// classifyMissedTransition decides why a state-gated UPDATE touched zero rows:
// the row does not exist (or is not owned by the caller) versus the row exists
// but already left the required state.
func (r *postgresRegistrationRepository) classifyMissedTransition(ctx context.Context, id int, userID *int) error {
	query := `SELECT registration_status FROM registrations WHERE id = $1`
	args := []interface{}{id}
	if userID != nil {
		query += ` AND user_id = $2`
		args = append(args, *userID)
	}

	var status models.RegistrationStatus
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to inspect registration state: %w", err)
	}
	return fmt.Errorf("%w: current status %q", ErrRegistrationInvalidTransition, status)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Registration, error) {
	reg, err := r.scanRegistration(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) collect(rows *sql.Rows) ([]models.Registration, error) {
	var regs []models.Registration
	for rows.Next() {
		reg, err := r.scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Registration, error) {
	reg := &models.Registration{}
	var teamMembers, responses []byte
	err := rowScanner.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.TeamName, &teamMembers, &responses,
		&reg.PaymentMode, &reg.PaymentStatus, &reg.PaymentAmount, &reg.TransactionRef, &reg.ProofKey,
		&reg.Status, &reg.ReviewerID, &reg.ReviewedAt, &reg.RejectionReason, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(teamMembers, &reg.TeamMembers); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(responses, &reg.CustomFieldResponses); err != nil {
		return nil, err
	}
	return reg, nil
}
