package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famguard/FamGuardBack/internal/audit"
	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/repository"
)

// ChildService covers guardian management of supervised accounts. Oversight
// settings are mutable only through here, and only by the owning guardian.
type ChildService struct {
	db        *pgxpool.Pool
	userRepo  *repository.UserRepository
	childRepo *repository.ChildRepository
	auditLog  *audit.Logger
}

func NewChildService(
	db *pgxpool.Pool,
	userRepo *repository.UserRepository,
	childRepo *repository.ChildRepository,
	auditLog *audit.Logger,
) *ChildService {
	return &ChildService{
		db:        db,
		userRepo:  userRepo,
		childRepo: childRepo,
		auditLog:  auditLog,
	}
}

type CreateChildInput struct {
	Email         string
	PasswordHash  string
	DisplayName   string
	OversightMode models.OversightMode
}

func (s *ChildService) CreateChild(
	ctx context.Context,
	guardianID int64,
	input CreateChildInput,
) (*models.Child, error) {
	if input.DisplayName == "" {
		return nil, ErrInvalidInput
	}
	if input.OversightMode != "" && !models.ValidOversightMode(input.OversightMode) {
		return nil, ErrInvalidInput
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txUserRepo := repository.NewUserRepository(tx)
	txChildRepo := repository.NewChildRepository(tx)

	user := &models.User{
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         models.RoleChild,
	}
	if err := txUserRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	child := &models.Child{
		ID:            user.ID,
		GuardianID:    guardianID,
		DisplayName:   input.DisplayName,
		OversightMode: models.NormalizeOversightMode(input.OversightMode),
	}
	if err := txChildRepo.Create(ctx, child); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return child, nil
}

type UpdateChildSettingsInput struct {
	OversightMode   *models.OversightMode
	MessagingPaused *bool
}

func (s *ChildService) UpdateSettings(
	ctx context.Context,
	guardianID int64,
	childID int64,
	input UpdateChildSettingsInput,
) (*models.Child, error) {
	child, err := s.childRepo.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	mode := child.OversightMode
	if input.OversightMode != nil {
		if !models.ValidOversightMode(*input.OversightMode) {
			return nil, ErrInvalidInput
		}
		mode = *input.OversightMode
	}
	paused := child.MessagingPaused
	if input.MessagingPaused != nil {
		paused = *input.MessagingPaused
	}

	updated, err := s.childRepo.UpdateSettings(ctx, childID, mode, paused)
	if err != nil {
		return nil, err
	}

	s.auditLog.ChildSettingsChanged(childID, guardianID, string(mode), paused)

	return updated, nil
}

func (s *ChildService) ListChildren(ctx context.Context, guardianID int64) ([]models.Child, error) {
	return s.childRepo.ListByGuardian(ctx, guardianID)
}
