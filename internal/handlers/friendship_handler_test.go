package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/services"
)

type stubFriendshipService struct {
	requestResult    *models.Friendship
	requestErr       error
	blockResult      *models.Friendship
	blockErr         error
	listResult       []models.Friendship
	listErr          error
	lastRequester    int64
	lastTarget       int64
	lastGuardian     int64
	lastFriendshipID int64
}

func (s *stubFriendshipService) RequestFriendship(_ context.Context, requesterChildID, targetChildID int64) (*models.Friendship, error) {
	s.lastRequester = requesterChildID
	s.lastTarget = targetChildID
	return s.requestResult, s.requestErr
}

func (s *stubFriendshipService) BlockFriendship(_ context.Context, guardianID, friendshipID int64) (*models.Friendship, error) {
	s.lastGuardian = guardianID
	s.lastFriendshipID = friendshipID
	return s.blockResult, s.blockErr
}

func (s *stubFriendshipService) ListForChild(_ context.Context, childID int64) ([]models.Friendship, error) {
	s.lastRequester = childID
	return s.listResult, s.listErr
}

func TestRequestFriendshipReturnsPending(t *testing.T) {
	service := &stubFriendshipService{
		requestResult: &models.Friendship{
			ID:               7,
			ChildAID:         8,
			ChildBID:         42,
			RequesterChildID: 42,
			Status:           models.FriendshipStatusPending,
		},
	}
	handler := NewFriendshipHandler(service)
	app := newChildApp(handler.RequestFriendship, http.MethodPost, "/api/v1/friendships")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friendships", strings.NewReader(`{"target_child_id":8}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRequester != 42 || service.lastTarget != 8 {
		t.Fatalf("unexpected forwarded request: requester=%d target=%d", service.lastRequester, service.lastTarget)
	}

	var body struct {
		Friendship models.Friendship `json:"friendship"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Friendship.Status != models.FriendshipStatusPending {
		t.Fatalf("expected pending friendship, got %q", body.Friendship.Status)
	}
}

func TestRequestFriendshipDuplicateConflict(t *testing.T) {
	service := &stubFriendshipService{requestErr: services.ErrFriendshipExists}
	handler := NewFriendshipHandler(service)
	app := newChildApp(handler.RequestFriendship, http.MethodPost, "/api/v1/friendships")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friendships", strings.NewReader(`{"target_child_id":8}`))
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

func TestBlockFriendshipByGuardian(t *testing.T) {
	service := &stubFriendshipService{
		blockResult: &models.Friendship{ID: 7, Status: models.FriendshipStatusBlocked},
	}
	handler := NewFriendshipHandler(service)
	app := newGuardianApp(handler.BlockFriendship, http.MethodPost, "/api/v1/friendships/:id/block")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friendships/7/block", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastGuardian != 1 || service.lastFriendshipID != 7 {
		t.Fatalf("unexpected forwarded block: guardian=%d friendship=%d", service.lastGuardian, service.lastFriendshipID)
	}
}

func TestBlockFriendshipRejectsChildToken(t *testing.T) {
	handler := NewFriendshipHandler(&stubFriendshipService{})
	app := newChildApp(handler.BlockFriendship, http.MethodPost, "/api/v1/friendships/:id/block")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friendships/7/block", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
