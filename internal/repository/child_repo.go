package repository

import (
	"context"

	"github.com/famguard/FamGuardBack/internal/models"
)

type ChildRepository struct {
	db DBTX
}

func NewChildRepository(db DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = `id, guardian_id, display_name, oversight_mode, messaging_paused, created_at, updated_at`

func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (id, guardian_id, display_name, oversight_mode, messaging_paused)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		child.ID,
		child.GuardianID,
		child.DisplayName,
		child.OversightMode,
		child.MessagingPaused,
	).Scan(&child.CreatedAt, &child.UpdatedAt)
}

func (r *ChildRepository) GetByID(ctx context.Context, childID int64) (*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1`

	var child models.Child
	err := r.db.QueryRow(ctx, query, childID).Scan(
		&child.ID,
		&child.GuardianID,
		&child.DisplayName,
		&child.OversightMode,
		&child.MessagingPaused,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	child.OversightMode = models.NormalizeOversightMode(child.OversightMode)
	return &child, nil
}

func (r *ChildRepository) ListByGuardian(ctx context.Context, guardianID int64) ([]models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE guardian_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make([]models.Child, 0)
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(
			&child.ID,
			&child.GuardianID,
			&child.DisplayName,
			&child.OversightMode,
			&child.MessagingPaused,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, err
		}
		child.OversightMode = models.NormalizeOversightMode(child.OversightMode)
		children = append(children, child)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return children, nil
}

// UpdateSettings rewrites the guardian-controlled fields.
func (r *ChildRepository) UpdateSettings(
	ctx context.Context,
	childID int64,
	mode models.OversightMode,
	messagingPaused bool,
) (*models.Child, error) {
	query := `
		UPDATE children
		SET oversight_mode = $2, messaging_paused = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + childColumns

	var child models.Child
	err := r.db.QueryRow(ctx, query, childID, mode, messagingPaused).Scan(
		&child.ID,
		&child.GuardianID,
		&child.DisplayName,
		&child.OversightMode,
		&child.MessagingPaused,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &child, nil
}
