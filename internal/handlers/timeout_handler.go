package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/services"
)

type timeoutApplicationService interface {
	CreateTimeout(ctx context.Context, guardianID int64, input services.CreateTimeoutInput) (*models.Timeout, error)
	ListActiveTimeouts(ctx context.Context, guardianID int64) ([]models.Timeout, error)
	EndTimeout(ctx context.Context, guardianID, timeoutID int64) (*models.Timeout, error)
}

type TimeoutHandler struct {
	service timeoutApplicationService
}

func NewTimeoutHandler(service timeoutApplicationService) *TimeoutHandler {
	return &TimeoutHandler{service: service}
}

type createTimeoutRequest struct {
	ChildID         int64   `json:"child_id"`
	ConversationID  *int64  `json:"conversation_id"`
	StartInMinutes  int     `json:"start_in_minutes"`
	DurationMinutes int     `json:"duration_minutes"`
	Reason          *string `json:"reason"`
}

func (h *TimeoutHandler) CreateTimeout(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	var req createTimeoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	timeout, err := h.service.CreateTimeout(c.Context(), guardianID, services.CreateTimeoutInput{
		ChildID:         req.ChildID,
		ConversationID:  req.ConversationID,
		StartInMinutes:  req.StartInMinutes,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
	})
	if err != nil {
		return mapTimeoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"timeout": timeout})
}

func (h *TimeoutHandler) ListActiveTimeouts(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	timeouts, err := h.service.ListActiveTimeouts(c.Context(), guardianID)
	if err != nil {
		return mapTimeoutError(c, err)
	}

	return c.JSON(fiber.Map{"timeouts": timeouts})
}

func (h *TimeoutHandler) EndTimeout(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	timeoutID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || timeoutID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid timeout id"})
	}

	timeout, err := h.service.EndTimeout(c.Context(), guardianID, timeoutID)
	if err != nil {
		return mapTimeoutError(c, err)
	}

	return c.JSON(fiber.Map{"timeout": timeout})
}

func mapTimeoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrAlreadyTerminal):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Timeout has already ended"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Timeout not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process timeout request"})
	}
}
