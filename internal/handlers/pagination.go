package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/famguard/FamGuardBack/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// parseActorID reads the authenticated user id set by the auth middleware.
func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

var (
	errWrongRole = errors.New("wrong role")
	errBadToken  = errors.New("bad token")
)

// actingChildID resolves the acting child from the token, rejecting
// guardian tokens.
func actingChildID(c *fiber.Ctx) (int64, error) {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleChild {
		return 0, errWrongRole
	}
	childID, err := parseActorID(c)
	if err != nil {
		return 0, errBadToken
	}
	return childID, nil
}

func actingGuardianID(c *fiber.Ctx) (int64, error) {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleGuardian {
		return 0, errWrongRole
	}
	guardianID, err := parseActorID(c)
	if err != nil {
		return 0, errBadToken
	}
	return guardianID, nil
}

func mapActorError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errBadToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
}
