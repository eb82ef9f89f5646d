package repository

import (
	"context"
	"time"

	"github.com/famguard/FamGuardBack/internal/models"
)

type TimeoutRepository struct {
	db DBTX
}

func NewTimeoutRepository(db DBTX) *TimeoutRepository {
	return &TimeoutRepository{db: db}
}

const timeoutColumns = `id, child_id, conversation_id, start_at, end_at, status, reason, ended_by, created_by, created_at`

func scanTimeout(row interface{ Scan(dest ...any) error }, timeout *models.Timeout) error {
	return row.Scan(
		&timeout.ID,
		&timeout.ChildID,
		&timeout.ConversationID,
		&timeout.StartAt,
		&timeout.EndAt,
		&timeout.Status,
		&timeout.Reason,
		&timeout.EndedBy,
		&timeout.CreatedBy,
		&timeout.CreatedAt,
	)
}

func (r *TimeoutRepository) Create(ctx context.Context, timeout *models.Timeout) error {
	query := `
		INSERT INTO timeouts (child_id, conversation_id, start_at, end_at, status, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		timeout.ChildID,
		timeout.ConversationID,
		timeout.StartAt,
		timeout.EndAt,
		timeout.Status,
		timeout.Reason,
		timeout.CreatedBy,
	).Scan(&timeout.ID, &timeout.CreatedAt)
}

func (r *TimeoutRepository) GetByID(ctx context.Context, timeoutID int64) (*models.Timeout, error) {
	query := `SELECT ` + timeoutColumns + ` FROM timeouts WHERE id = $1`

	var timeout models.Timeout
	if err := scanTimeout(r.db.QueryRow(ctx, query, timeoutID), &timeout); err != nil {
		return nil, err
	}
	return &timeout, nil
}

// ActiveWindowExists is the gating predicate: is there any window for the
// child containing now, either global or scoped to this conversation. It
// deliberately ignores the cached status column.
func (r *TimeoutRepository) ActiveWindowExists(
	ctx context.Context,
	childID int64,
	conversationID int64,
	now time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM timeouts
			WHERE child_id = $1
			  AND start_at <= $3
			  AND end_at > $3
			  AND (conversation_id IS NULL OR conversation_id = $2)
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, childID, conversationID, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListNotEndedByGuardian returns the timeouts of a guardian's children whose
// cached status has not reached ended yet. Stale rows are included so the
// caller can refresh them.
func (r *TimeoutRepository) ListNotEndedByGuardian(
	ctx context.Context,
	guardianID int64,
) ([]models.Timeout, error) {
	query := `
		SELECT t.id, t.child_id, t.conversation_id, t.start_at, t.end_at, t.status, t.reason, t.ended_by, t.created_by, t.created_at
		FROM timeouts t
		JOIN children c ON c.id = t.child_id
		WHERE c.guardian_id = $1
		  AND t.status <> 'ended'
		ORDER BY t.start_at, t.id
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timeouts := make([]models.Timeout, 0)
	for rows.Next() {
		var timeout models.Timeout
		if err := scanTimeout(rows, &timeout); err != nil {
			return nil, err
		}
		timeouts = append(timeouts, timeout)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return timeouts, nil
}

// RefreshLifecycle opportunistically rewrites cached statuses for a child's
// windows from the clock: scheduled windows whose start has passed become
// active, and anything past its end becomes ended with ended_by = system.
// Advisory only; gating never reads the cached column.
func (r *TimeoutRepository) RefreshLifecycle(ctx context.Context, childID int64, now time.Time) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE timeouts
		SET status = 'active'
		WHERE child_id = $1
		  AND status = 'scheduled'
		  AND start_at <= $2
		  AND end_at > $2
	`, childID, now); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE timeouts
		SET status = 'ended', ended_by = COALESCE(ended_by, 'system')
		WHERE child_id = $1
		  AND status <> 'ended'
		  AND end_at <= $2
	`, childID, now)
	return err
}

// MarkStatus rewrites a single cached status if it still holds the expected
// value; used for lazy refresh during listings. Losing the race is fine.
func (r *TimeoutRepository) MarkStatus(
	ctx context.Context,
	timeoutID int64,
	currentStatus models.TimeoutStatus,
	nextStatus models.TimeoutStatus,
	endedBy *string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE timeouts
		SET status = $3, ended_by = COALESCE(ended_by, $4)
		WHERE id = $1 AND status = $2
	`, timeoutID, currentStatus, nextStatus, endedBy)
	return err
}

// EndEarly terminates a window that is still scheduled or running. The end
// timestamp is pulled back to now so the gating predicate stops matching
// immediately. Returns pgx.ErrNoRows if the window already ended.
func (r *TimeoutRepository) EndEarly(
	ctx context.Context,
	timeoutID int64,
	endedBy string,
	now time.Time,
) (*models.Timeout, error) {
	query := `
		UPDATE timeouts
		SET status = 'ended', ended_by = $2, end_at = LEAST(end_at, $3)
		WHERE id = $1
		  AND status <> 'ended'
		  AND end_at > $3
		RETURNING ` + timeoutColumns

	var timeout models.Timeout
	if err := scanTimeout(r.db.QueryRow(ctx, query, timeoutID, endedBy, now), &timeout); err != nil {
		return nil, err
	}
	return &timeout, nil
}
