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

type messagingApplicationService interface {
	ListConversations(ctx context.Context, childID int64) ([]models.ConversationSummary, error)
	CreateConversation(ctx context.Context, actorChildID, peerChildID int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, actorChildID, conversationID int64, page, limit int) ([]models.Message, int, error)
	AttemptSendMessage(ctx context.Context, senderChildID, conversationID int64, content string) (*models.Message, error)
}

type ChatHandler struct {
	service messagingApplicationService
}

func NewChatHandler(service messagingApplicationService) *ChatHandler {
	return &ChatHandler{service: service}
}

type createConversationRequest struct {
	PeerChildID int64 `json:"peer_child_id"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	conversations, err := h.service.ListConversations(c.Context(), childID)
	if err != nil {
		return mapMessagingError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateConversation(c.Context(), childID, req.PeerChildID)
	if err != nil {
		return mapMessagingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), childID, conversationID, page, limit)
	if err != nil {
		return mapMessagingError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	childID, err := actingChildID(c)
	if err != nil {
		return mapActorError(c, err)
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.AttemptSendMessage(c.Context(), childID, conversationID, req.Content)
	if err != nil {
		return mapMessagingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func mapMessagingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrNotFriends):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "You can only message approved friends"})
	case errors.Is(err, services.ErrMessagingPaused):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Messaging is paused", "code": "messaging_paused"})
	case errors.Is(err, services.ErrTimeoutActive):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Messaging is unavailable during a timeout", "code": "timeout_active"})
	case errors.Is(err, services.ErrFriendTimeout):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "Your friend cannot receive messages right now", "code": "friend_timeout"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
