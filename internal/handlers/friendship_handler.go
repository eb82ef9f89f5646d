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

type friendshipApplicationService interface {
	RequestFriendship(ctx context.Context, requesterChildID, targetChildID int64) (*models.Friendship, error)
	BlockFriendship(ctx context.Context, guardianID, friendshipID int64) (*models.Friendship, error)
	ListForChild(ctx context.Context, childID int64) ([]models.Friendship, error)
}

type FriendshipHandler struct {
	service friendshipApplicationService
}

func NewFriendshipHandler(service friendshipApplicationService) *FriendshipHandler {
	return &FriendshipHandler{service: service}
}

type friendRequestRequest struct {
	TargetChildID int64 `json:"target_child_id"`
}

func (h *FriendshipHandler) RequestFriendship(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	var req friendRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	friendship, err := h.service.RequestFriendship(c.Context(), childID, req.TargetChildID)
	if err != nil {
		return mapFriendshipError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"friendship": friendship})
}

func (h *FriendshipHandler) ListFriendships(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	friendships, err := h.service.ListForChild(c.Context(), childID)
	if err != nil {
		return mapFriendshipError(c, err)
	}

	return c.JSON(fiber.Map{"friendships": friendships})
}

func (h *FriendshipHandler) BlockFriendship(c *fiber.Ctx) error {
	guardianID, err := actingGuardianID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	friendshipID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || friendshipID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid friendship id"})
	}

	friendship, err := h.service.BlockFriendship(c.Context(), guardianID, friendshipID)
	if err != nil {
		return mapFriendshipError(c, err)
	}

	return c.JSON(fiber.Map{"friendship": friendship})
}

func mapFriendshipError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrFriendshipExists):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "A friendship between these children already exists"})
	case errors.Is(err, services.ErrAlreadyTerminal):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Friendship is already in a final state"})
	case errors.Is(err, services.ErrMessagingPaused):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Messaging is paused", "code": "messaging_paused"})
	case errors.Is(err, services.ErrTimeoutActive):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Friend requests are unavailable during a timeout", "code": "timeout_active"})
	case errors.Is(err, services.ErrFriendTimeout):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "That child cannot receive friend requests right now", "code": "friend_timeout"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Friendship not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process friendship request"})
	}
}
