package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/services"
	"github.com/famguard/FamGuardBack/pkg/utils"
)

type childApplicationService interface {
	CreateChild(ctx context.Context, guardianID int64, input services.CreateChildInput) (*models.Child, error)
	UpdateSettings(ctx context.Context, guardianID, childID int64, input services.UpdateChildSettingsInput) (*models.Child, error)
	ListChildren(ctx context.Context, guardianID int64) ([]models.Child, error)
}

type ChildHandler struct {
	service childApplicationService
}

func NewChildHandler(service childApplicationService) *ChildHandler {
	return &ChildHandler{service: service}
}

type createChildRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	DisplayName   string `json:"display_name"`
	OversightMode string `json:"oversight_mode"`
}

type updateChildSettingsRequest struct {
	OversightMode   *string `json:"oversight_mode"`
	MessagingPaused *bool   `json:"messaging_paused"`
}

func (h *ChildHandler) CreateChild(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	var req createChildRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email format"})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to hash password"})
	}

	child, err := h.service.CreateChild(c.Context(), guardianID, services.CreateChildInput{
		Email:         strings.ToLower(parsedEmail.Address),
		PasswordHash:  hashed,
		DisplayName:   strings.TrimSpace(req.DisplayName),
		OversightMode: models.OversightMode(req.OversightMode),
	})
	if err != nil {
		return mapChildError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"child": child})
}

func (h *ChildHandler) ListChildren(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	children, err := h.service.ListChildren(c.Context(), guardianID)
	if err != nil {
		return mapChildError(c, err)
	}

	return c.JSON(fiber.Map{"children": children})
}

func (h *ChildHandler) UpdateSettings(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	childID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || childID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child id"})
	}

	var req updateChildSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	input := services.UpdateChildSettingsInput{MessagingPaused: req.MessagingPaused}
	if req.OversightMode != nil {
		mode := models.OversightMode(*req.OversightMode)
		input.OversightMode = &mode
	}

	child, err := h.service.UpdateSettings(c.Context(), guardianID, childID, input)
	if err != nil {
		return mapChildError(c, err)
	}

	return c.JSON(fiber.Map{"child": child})
}

func mapChildError(c *fiber.Ctx, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process child request"})
	}
}
