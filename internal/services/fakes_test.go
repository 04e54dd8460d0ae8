package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"matrimony-backend/internal/models"
)

// fakeInterestStore is an in-memory InterestStore with the same conditional
// update semantics as the Postgres repository.
type fakeInterestStore struct {
	mu   sync.Mutex
	byID map[string]*models.Interest
}

func newFakeInterestStore() *fakeInterestStore {
	return &fakeInterestStore{byID: make(map[string]*models.Interest)}
}

func copyInterest(in *models.Interest) *models.Interest {
	cp := *in
	return &cp
}

func (f *fakeInterestStore) findPair(senderID, receiverID string) *models.Interest {
	for _, in := range f.byID {
		if in.SenderID == senderID && in.ReceiverID == receiverID {
			return in
		}
	}
	return nil
}

func (f *fakeInterestStore) GetByID(_ context.Context, id string) (*models.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("interest: %w", models.ErrNotFound)
	}
	return copyInterest(in), nil
}

func (f *fakeInterestStore) GetByPair(_ context.Context, senderID, receiverID string) (*models.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in := f.findPair(senderID, receiverID); in != nil {
		return copyInterest(in), nil
	}
	return nil, fmt.Errorf("interest: %w", models.ErrNotFound)
}

func (f *fakeInterestStore) Create(_ context.Context, in *models.Interest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findPair(in.SenderID, in.ReceiverID) != nil {
		return false, nil
	}
	f.byID[in.ID] = copyInterest(in)
	return true, nil
}

func (f *fakeInterestStore) SetStatus(_ context.Context, id string, from, to models.InterestStatus, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.byID[id]
	if !ok || in.Status != from {
		return false, nil
	}
	in.Status = to
	in.UpdatedAt = now
	return true, nil
}

func (f *fakeInterestStore) AcceptMutual(_ context.Context, firstID, secondID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first, ok1 := f.byID[firstID]
	second, ok2 := f.byID[secondID]
	if !ok1 || !ok2 ||
		first.Status != models.InterestStatusPending ||
		second.Status != models.InterestStatusPending {
		return false, nil
	}
	for _, in := range []*models.Interest{first, second} {
		in.Status = models.InterestStatusAccepted
		in.UpdatedAt = now
	}
	return true, nil
}

func (f *fakeInterestStore) SetGrant(_ context.Context, id string, duration models.PhotoAccessDuration, grantedAt time.Time, expiresAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.byID[id]
	if !ok || in.Status != models.InterestStatusAccepted {
		return false, nil
	}
	in.PhotoAccessDuration = &duration
	in.PhotoAccessGrantedAt = &grantedAt
	in.PhotoAccessExpiresAt = expiresAt
	in.PhotoAccessRevoked = false
	in.PhotoAccessRevokedAt = nil
	in.UpdatedAt = grantedAt
	return true, nil
}

func (f *fakeInterestStore) RevokeGrant(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.byID[id]
	if !ok || in.PhotoAccessGrantedAt == nil || in.PhotoAccessRevoked {
		return false, nil
	}
	in.PhotoAccessRevoked = true
	in.PhotoAccessRevokedAt = &now
	in.UpdatedAt = now
	return true, nil
}

func (f *fakeInterestStore) DeletePending(_ context.Context, senderID, receiverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := f.findPair(senderID, receiverID)
	if in == nil || in.Status != models.InterestStatusPending {
		return false, nil
	}
	delete(f.byID, in.ID)
	return true, nil
}

func (f *fakeInterestStore) ListByReceiver(_ context.Context, receiverID string, _, _ int) ([]*models.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Interest
	for _, in := range f.byID {
		if in.ReceiverID == receiverID {
			out = append(out, copyInterest(in))
		}
	}
	return out, nil
}

func (f *fakeInterestStore) ListBySender(_ context.Context, senderID string, _, _ int) ([]*models.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Interest
	for _, in := range f.byID {
		if in.SenderID == senderID {
			out = append(out, copyInterest(in))
		}
	}
	return out, nil
}

// fakeUserDirectory resolves users from a static map
type fakeUserDirectory struct {
	users map[string]*models.User
}

func newFakeUserDirectory(ids ...string) *fakeUserDirectory {
	users := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		users[id] = &models.User{ID: id, DisplayName: "user " + id}
	}
	return &fakeUserDirectory{users: users}
}

func (f *fakeUserDirectory) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return user, nil
}

// sentNotification records one Notify call
type sentNotification struct {
	UserID   string
	Type     string
	Message  string
	Metadata map[string]any
}

// fakeNotificationSink records notifications; fails when failing is set
type fakeNotificationSink struct {
	mu      sync.Mutex
	sent    []sentNotification
	failing bool
}

func (f *fakeNotificationSink) Notify(_ context.Context, userID, typ, message string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return fmt.Errorf("sink unavailable")
	}
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: typ, Message: message, Metadata: metadata})
	return nil
}

func (f *fakeNotificationSink) byType(typ string) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, n := range f.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
