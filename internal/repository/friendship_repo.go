package repository

import (
	"context"

	"github.com/famguard/FamGuardBack/internal/models"
)

type FriendshipRepository struct {
	db DBTX
}

func NewFriendshipRepository(db DBTX) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

const friendshipColumns = `id, child_a_id, child_b_id, requester_child_id, status, created_at, updated_at`

func scanFriendship(row interface{ Scan(dest ...any) error }, friendship *models.Friendship) error {
	return row.Scan(
		&friendship.ID,
		&friendship.ChildAID,
		&friendship.ChildBID,
		&friendship.RequesterChildID,
		&friendship.Status,
		&friendship.CreatedAt,
		&friendship.UpdatedAt,
	)
}

func (r *FriendshipRepository) Create(
	ctx context.Context,
	requesterChildID int64,
	targetChildID int64,
	status models.FriendshipStatus,
) (*models.Friendship, error) {
	childA, childB := models.NormalizePair(requesterChildID, targetChildID)

	query := `
		INSERT INTO friendships (child_a_id, child_b_id, requester_child_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + friendshipColumns

	var friendship models.Friendship
	err := scanFriendship(
		r.db.QueryRow(ctx, query, childA, childB, requesterChildID, status),
		&friendship,
	)
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) GetByID(ctx context.Context, friendshipID int64) (*models.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`

	var friendship models.Friendship
	if err := scanFriendship(r.db.QueryRow(ctx, query, friendshipID), &friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) GetByIDForUpdate(ctx context.Context, friendshipID int64) (*models.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1 FOR UPDATE`

	var friendship models.Friendship
	if err := scanFriendship(r.db.QueryRow(ctx, query, friendshipID), &friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) GetByPair(
	ctx context.Context,
	firstChildID int64,
	secondChildID int64,
) (*models.Friendship, error) {
	childA, childB := models.NormalizePair(firstChildID, secondChildID)

	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE child_a_id = $1 AND child_b_id = $2`

	var friendship models.Friendship
	if err := scanFriendship(r.db.QueryRow(ctx, query, childA, childB), &friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

// HasApprovedFriendship reports whether the pair is (or ever was recorded as)
// mutually approved.
func (r *FriendshipRepository) HasApprovedFriendship(
	ctx context.Context,
	firstChildID int64,
	secondChildID int64,
) (bool, error) {
	childA, childB := models.NormalizePair(firstChildID, secondChildID)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM friendships
			WHERE child_a_id = $1 AND child_b_id = $2 AND status = 'approved'
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, childA, childB).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateStatusIfCurrent transitions a friendship only when its status still
// matches what the caller read; a lost race surfaces as pgx.ErrNoRows.
func (r *FriendshipRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	friendshipID int64,
	currentStatus models.FriendshipStatus,
	nextStatus models.FriendshipStatus,
) (*models.Friendship, error) {
	query := `
		UPDATE friendships
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + friendshipColumns

	var friendship models.Friendship
	err := scanFriendship(
		r.db.QueryRow(ctx, query, friendshipID, currentStatus, nextStatus),
		&friendship,
	)
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// SetBlocked blocks a friendship from any non-blocked state. Returns
// pgx.ErrNoRows when it was already blocked.
func (r *FriendshipRepository) SetBlocked(ctx context.Context, friendshipID int64) (*models.Friendship, error) {
	query := `
		UPDATE friendships
		SET status = 'blocked', updated_at = NOW()
		WHERE id = $1 AND status <> 'blocked'
		RETURNING ` + friendshipColumns

	var friendship models.Friendship
	if err := scanFriendship(r.db.QueryRow(ctx, query, friendshipID), &friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) ListForChild(ctx context.Context, childID int64) ([]models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE child_a_id = $1 OR child_b_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friendships := make([]models.Friendship, 0)
	for rows.Next() {
		var friendship models.Friendship
		if err := scanFriendship(rows, &friendship); err != nil {
			return nil, err
		}
		friendships = append(friendships, friendship)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return friendships, nil
}

// ListPendingForGuardian returns friend requests currently waiting on the
// given guardian's decision.
func (r *FriendshipRepository) ListPendingForGuardian(
	ctx context.Context,
	guardianID int64,
) ([]models.Friendship, error) {
	query := `
		SELECT f.id, f.child_a_id, f.child_b_id, f.requester_child_id, f.status, f.created_at, f.updated_at
		FROM friendships f
		JOIN children approver ON approver.id = CASE
			WHEN f.status = 'pending' THEN f.requester_child_id
			WHEN f.requester_child_id = f.child_a_id THEN f.child_b_id
			ELSE f.child_a_id
		END
		WHERE f.status IN ('pending', 'pending_recipient')
		  AND approver.guardian_id = $1
		ORDER BY f.created_at, f.id
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friendships := make([]models.Friendship, 0)
	for rows.Next() {
		var friendship models.Friendship
		if err := scanFriendship(rows, &friendship); err != nil {
			return nil, err
		}
		friendships = append(friendships, friendship)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return friendships, nil
}
