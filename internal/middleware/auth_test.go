package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/pkg/utils"
)

const testSecret = "auth-test-secret"

func newProtectedApp(t *testing.T) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Get("/protected", AuthRequired(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("role"),
		})
	})
	return app
}

func TestAuthRequiredRejectsMissingAndMalformedHeaders(t *testing.T) {
	app := newProtectedApp(t)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no bearer prefix", "Token abc"},
		{"single part", "Bearer"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestAuthRequiredAcceptsGuardianAndChildTokens(t *testing.T) {
	app := newProtectedApp(t)

	for _, role := range []string{models.RoleGuardian, models.RoleChild} {
		token, err := utils.GenerateToken("42", role, testSecret)
		if err != nil {
			t.Fatalf("GenerateToken(%s): %v", role, err)
		}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("role %q: expected 200, got %d", role, resp.StatusCode)
		}
	}
}

func TestAuthRequiredRejectsUnknownRole(t *testing.T) {
	app := newProtectedApp(t)

	token, err := utils.GenerateToken("42", "admin", testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown role, got %d", resp.StatusCode)
	}
}
