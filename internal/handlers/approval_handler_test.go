package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/services"
)

type stubApprovalService struct {
	pendingResult  *services.PendingApprovals
	pendingErr     error
	decideResult   *services.DecisionResult
	decideErr      error
	lastGuardian   int64
	lastEntityType string
	lastEntityID   int64
	lastDecision   string
}

func (s *stubApprovalService) ListPending(_ context.Context, guardianID int64) (*services.PendingApprovals, error) {
	s.lastGuardian = guardianID
	return s.pendingResult, s.pendingErr
}

func (s *stubApprovalService) Decide(_ context.Context, guardianID int64, entityType string, entityID int64, decision string) (*services.DecisionResult, error) {
	s.lastGuardian = guardianID
	s.lastEntityType = entityType
	s.lastEntityID = entityID
	s.lastDecision = decision
	return s.decideResult, s.decideErr
}

func TestListPendingReturnsBothQueues(t *testing.T) {
	service := &stubApprovalService{
		pendingResult: &services.PendingApprovals{
			Messages: []models.Message{
				{ID: 4, ConversationID: 11, SenderChildID: 42, Status: models.MessageStatusPending},
			},
			Friendships: []models.Friendship{
				{ID: 7, ChildAID: 42, ChildBID: 51, Status: models.FriendshipStatusPendingRecipient},
			},
		},
	}
	handler := NewApprovalHandler(service)
	app := newGuardianApp(handler.ListPending, http.MethodGet, "/api/v1/approvals")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastGuardian != 1 {
		t.Fatalf("unexpected guardian: %d", service.lastGuardian)
	}

	var body services.PendingApprovals
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 1 || len(body.Friendships) != 1 {
		t.Fatalf("unexpected queues: %+v", body)
	}
}

func TestDecideForwardsMessageDecision(t *testing.T) {
	service := &stubApprovalService{
		decideResult: &services.DecisionResult{
			EntityType: services.EntityMessage,
			Message:    &models.Message{ID: 4, Status: models.MessageStatusDelivered},
			Status:     string(models.MessageStatusDelivered),
		},
	}
	handler := NewApprovalHandler(service)
	app := newGuardianApp(handler.Decide, http.MethodPost, "/api/v1/approvals/:entity/:id")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/messages/4", strings.NewReader(`{"decision":"approve"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastEntityType != services.EntityMessage || service.lastEntityID != 4 || service.lastDecision != "approve" {
		t.Fatalf("unexpected forwarded decision: %s %d %s", service.lastEntityType, service.lastEntityID, service.lastDecision)
	}
}

func TestDecideRejectsUnknownEntity(t *testing.T) {
	handler := NewApprovalHandler(&stubApprovalService{})
	app := newGuardianApp(handler.Decide, http.MethodPost, "/api/v1/approvals/:entity/:id")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/timeouts/4", strings.NewReader(`{"decision":"approve"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDecideConflictWhenAlreadyDecided(t *testing.T) {
	service := &stubApprovalService{decideErr: services.ErrAlreadyTerminal}
	handler := NewApprovalHandler(service)
	app := newGuardianApp(handler.Decide, http.MethodPost, "/api/v1/approvals/:entity/:id")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/friendships/7", strings.NewReader(`{"decision":"deny"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDecideNotFound(t *testing.T) {
	service := &stubApprovalService{decideErr: pgx.ErrNoRows}
	handler := NewApprovalHandler(service)
	app := newGuardianApp(handler.Decide, http.MethodPost, "/api/v1/approvals/:entity/:id")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/messages/999", strings.NewReader(`{"decision":"approve"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
