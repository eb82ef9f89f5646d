package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/famguard/FamGuardBack/internal/services"
)

type approvalApplicationService interface {
	ListPending(ctx context.Context, guardianID int64) (*services.PendingApprovals, error)
	Decide(ctx context.Context, guardianID int64, entityType string, entityID int64, decision string) (*services.DecisionResult, error)
}

type ApprovalHandler struct {
	service approvalApplicationService
}

func NewApprovalHandler(service approvalApplicationService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (h *ApprovalHandler) ListPending(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	pending, err := h.service.ListPending(c.Context(), guardianID)
	if err != nil {
		return mapApprovalError(c, err)
	}

	return c.JSON(pending)
}

// Decide handles POST /approvals/:entity/:id with decision approve or deny.
// The entity path segment is "messages" or "friendships".
func (h *ApprovalHandler) Decide(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	var entityType string
	switch c.Params("entity") {
	case "messages":
		entityType = services.EntityMessage
	case "friendships":
		entityType = services.EntityFriendship
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entity type"})
	}

	entityID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || entityID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entity id"})
	}

	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.Decide(c.Context(), guardianID, entityType, entityID, req.Decision)
	if err != nil {
		return mapApprovalError(c, err)
	}

	return c.JSON(result)
}

func mapApprovalError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrAlreadyTerminal):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Already decided"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Approval item not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process approval"})
	}
}
