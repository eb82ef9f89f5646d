package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/famguard/FamGuardBack/internal/audit"
	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/notify"
)

type stubChildReader struct {
	children map[int64]*models.Child
}

func (s *stubChildReader) GetByID(_ context.Context, childID int64) (*models.Child, error) {
	child, ok := s.children[childID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return child, nil
}

type stubConversationReader struct {
	conversations map[int64]*models.Conversation
}

func (s *stubConversationReader) GetByID(_ context.Context, conversationID int64) (*models.Conversation, error) {
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return conversation, nil
}

type stubTimeoutStore struct {
	nextID        int64
	timeouts      map[int64]*models.Timeout
	refreshCalls  int
	markedStatus  map[int64]models.TimeoutStatus
	activeByChild map[int64]bool
}

func newStubTimeoutStore() *stubTimeoutStore {
	return &stubTimeoutStore{
		timeouts:      make(map[int64]*models.Timeout),
		markedStatus:  make(map[int64]models.TimeoutStatus),
		activeByChild: make(map[int64]bool),
	}
}

func (s *stubTimeoutStore) Create(_ context.Context, timeout *models.Timeout) error {
	s.nextID++
	timeout.ID = s.nextID
	timeout.CreatedAt = time.Now().UTC()
	copied := *timeout
	s.timeouts[timeout.ID] = &copied
	return nil
}

func (s *stubTimeoutStore) GetByID(_ context.Context, timeoutID int64) (*models.Timeout, error) {
	timeout, ok := s.timeouts[timeoutID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *timeout
	return &copied, nil
}

func (s *stubTimeoutStore) ActiveWindowExists(_ context.Context, childID, _ int64, _ time.Time) (bool, error) {
	return s.activeByChild[childID], nil
}

func (s *stubTimeoutStore) ListNotEndedByGuardian(_ context.Context, _ int64) ([]models.Timeout, error) {
	result := make([]models.Timeout, 0, len(s.timeouts))
	for _, timeout := range s.timeouts {
		if timeout.Status != models.TimeoutStatusEnded {
			result = append(result, *timeout)
		}
	}
	return result, nil
}

func (s *stubTimeoutStore) RefreshLifecycle(_ context.Context, _ int64, _ time.Time) error {
	s.refreshCalls++
	return nil
}

func (s *stubTimeoutStore) MarkStatus(_ context.Context, timeoutID int64, _, nextStatus models.TimeoutStatus, endedBy *string) error {
	s.markedStatus[timeoutID] = nextStatus
	if timeout, ok := s.timeouts[timeoutID]; ok {
		timeout.Status = nextStatus
		if endedBy != nil && timeout.EndedBy == nil {
			timeout.EndedBy = endedBy
		}
	}
	return nil
}

func (s *stubTimeoutStore) EndEarly(_ context.Context, timeoutID int64, endedBy string, now time.Time) (*models.Timeout, error) {
	timeout, ok := s.timeouts[timeoutID]
	if !ok || timeout.Status == models.TimeoutStatusEnded || !timeout.EndAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	timeout.Status = models.TimeoutStatusEnded
	timeout.EndedBy = &endedBy
	if timeout.EndAt.After(now) {
		timeout.EndAt = now
	}
	copied := *timeout
	return &copied, nil
}

type recordingPublisher struct {
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.Event) {
	p.events = append(p.events, event)
}

func newTestTimeoutService(store *stubTimeoutStore, children *stubChildReader, conversations *stubConversationReader, now time.Time) *TimeoutService {
	service := NewTimeoutService(store, children, conversations, audit.NewNop(), notify.NopPublisher{})
	service.now = func() time.Time { return now }
	return service
}

func guardedChild(childID, guardianID int64) *stubChildReader {
	return &stubChildReader{children: map[int64]*models.Child{
		childID: {
			ID:            childID,
			GuardianID:    guardianID,
			OversightMode: models.OversightApproveFirst,
		},
	}}
}

func TestCreateTimeoutValidatesRanges(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	service := newTestTimeoutService(newStubTimeoutStore(), guardedChild(5, 1), &stubConversationReader{}, now)

	cases := []CreateTimeoutInput{
		{ChildID: 5, StartInMinutes: -1, DurationMinutes: 30},
		{ChildID: 5, StartInMinutes: 61, DurationMinutes: 30},
		{ChildID: 5, StartInMinutes: 0, DurationMinutes: 0},
		{ChildID: 5, StartInMinutes: 0, DurationMinutes: 481},
		{ChildID: 0, StartInMinutes: 0, DurationMinutes: 30},
	}
	for _, input := range cases {
		if _, err := service.CreateTimeout(context.Background(), 1, input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestCreateTimeoutRejectsForeignChild(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	service := newTestTimeoutService(newStubTimeoutStore(), guardedChild(5, 1), &stubConversationReader{}, now)

	_, err := service.CreateTimeout(context.Background(), 99, CreateTimeoutInput{
		ChildID:         5,
		DurationMinutes: 30,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateTimeoutRejectsConversationWithoutChild(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	conversations := &stubConversationReader{conversations: map[int64]*models.Conversation{
		7: {ID: 7, ChildAID: 20, ChildBID: 21},
	}}
	service := newTestTimeoutService(newStubTimeoutStore(), guardedChild(5, 1), conversations, now)

	conversationID := int64(7)
	_, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		ConversationID:  &conversationID,
		DurationMinutes: 30,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-participant conversation, got %v", err)
	}
}

func TestCreateTimeoutInitialStatus(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, now)

	immediate, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  0,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}
	if immediate.Status != models.TimeoutStatusActive {
		t.Fatalf("startIn=0 should create an active window, got %q", immediate.Status)
	}
	if !immediate.StartAt.Equal(now) || !immediate.EndAt.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("unexpected window bounds: %s .. %s", immediate.StartAt, immediate.EndAt)
	}

	deferred, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  15,
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}
	if deferred.Status != models.TimeoutStatusScheduled {
		t.Fatalf("startIn=15 should create a scheduled window, got %q", deferred.Status)
	}
}

func TestCreateTimeoutPublishesCreatedEvent(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	events := &recordingPublisher{}
	service := NewTimeoutService(newStubTimeoutStore(), guardedChild(5, 1), &stubConversationReader{}, audit.NewNop(), events)
	service.now = func() time.Time { return now }

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  15,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}

	// A deferred window is announced as created, not started; it is not in
	// effect yet.
	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.Kind != notify.KindTimeoutCreated {
		t.Fatalf("expected %q, got %q", notify.KindTimeoutCreated, event.Kind)
	}
	if event.EntityID != created.ID || event.ChildID != 5 {
		t.Fatalf("unexpected event identity: %+v", event)
	}
	if event.Status != string(models.TimeoutStatusScheduled) {
		t.Fatalf("expected scheduled status on the event, got %q", event.Status)
	}
}

func TestListActiveTimeoutsRefreshesAndFiltersExpired(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	children := guardedChild(5, 1)
	service := newTestTimeoutService(store, children, &stubConversationReader{}, start)

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  0,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}

	// Without time passing the same window keeps showing up.
	for i := 0; i < 2; i++ {
		active, err := service.ListActiveTimeouts(context.Background(), 1)
		if err != nil {
			t.Fatalf("ListActiveTimeouts: %v", err)
		}
		if len(active) != 1 || active[0].ID != created.ID {
			t.Fatalf("expected the created window, got %+v", active)
		}
	}

	// After the window ends it drops out without any explicit update call,
	// and the cached status is rewritten as a side effect.
	service.now = func() time.Time { return start.Add(31 * time.Minute) }
	active, err := service.ListActiveTimeouts(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListActiveTimeouts: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active windows after expiry, got %+v", active)
	}
	if store.markedStatus[created.ID] != models.TimeoutStatusEnded {
		t.Fatalf("expected lazy refresh to mark the window ended, got %q", store.markedStatus[created.ID])
	}
	if got := store.timeouts[created.ID].EndedBy; got == nil || *got != models.TimeoutEndedBySystem {
		t.Fatalf("expected ended_by system, got %v", got)
	}
}

func TestListActiveTimeoutsPromotesScheduledWindows(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, start)

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  10,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}
	if created.Status != models.TimeoutStatusScheduled {
		t.Fatalf("expected scheduled, got %q", created.Status)
	}

	service.now = func() time.Time { return start.Add(11 * time.Minute) }
	active, err := service.ListActiveTimeouts(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListActiveTimeouts: %v", err)
	}
	if len(active) != 1 || active[0].Status != models.TimeoutStatusActive {
		t.Fatalf("expected the window reported active, got %+v", active)
	}
	if store.markedStatus[created.ID] != models.TimeoutStatusActive {
		t.Fatalf("expected cached status promoted to active, got %q", store.markedStatus[created.ID])
	}
}

func TestEndTimeoutByGuardian(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, start)

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  0,
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}

	service.now = func() time.Time { return start.Add(5 * time.Minute) }
	ended, err := service.EndTimeout(context.Background(), 1, created.ID)
	if err != nil {
		t.Fatalf("EndTimeout: %v", err)
	}
	if ended.Status != models.TimeoutStatusEnded {
		t.Fatalf("expected ended, got %q", ended.Status)
	}
	if ended.EndedBy == nil || *ended.EndedBy != models.TimeoutEndedByGuardian {
		t.Fatalf("expected ended_by guardian, got %v", ended.EndedBy)
	}
	if ended.EndAt.After(start.Add(5 * time.Minute)) {
		t.Fatalf("early end must pull end_at back to now, got %s", ended.EndAt)
	}
}

func TestEndTimeoutAfterExpiryReportsConflict(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, start)

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  0,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}

	service.now = func() time.Time { return start.Add(time.Hour) }
	if _, err := service.EndTimeout(context.Background(), 1, created.ID); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestEndTimeoutForeignGuardian(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, start)

	created, err := service.CreateTimeout(context.Background(), 1, CreateTimeoutInput{
		ChildID:         5,
		StartInMinutes:  0,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("CreateTimeout: %v", err)
	}

	if _, err := service.EndTimeout(context.Background(), 2, created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestIsGatedRefreshesBeforeChecking(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	store := newStubTimeoutStore()
	store.activeByChild[5] = true
	service := newTestTimeoutService(store, guardedChild(5, 1), &stubConversationReader{}, now)

	gated, err := service.IsGated(context.Background(), 5, 0, now)
	if err != nil {
		t.Fatalf("IsGated: %v", err)
	}
	if !gated {
		t.Fatal("expected child to be gated")
	}
	if store.refreshCalls != 1 {
		t.Fatalf("expected one lifecycle refresh, got %d", store.refreshCalls)
	}
}
