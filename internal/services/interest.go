package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matrimony-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InterestStore is the persistence contract for interest records.
// Implemented by repository.InterestRepository; the conditional updates
// (SetStatus, SetGrant, RevokeGrant, AcceptMutual) return false instead
// of an error when the row was not in the expected state, so the engine
// can tell a raced transition from a storage failure.
type InterestStore interface {
	GetByID(ctx context.Context, id string) (*models.Interest, error)
	GetByPair(ctx context.Context, senderID, receiverID string) (*models.Interest, error)
	Create(ctx context.Context, in *models.Interest) (bool, error)
	SetStatus(ctx context.Context, id string, from, to models.InterestStatus, now time.Time) (bool, error)
	AcceptMutual(ctx context.Context, firstID, secondID string, now time.Time) (bool, error)
	SetGrant(ctx context.Context, id string, duration models.PhotoAccessDuration, grantedAt time.Time, expiresAt *time.Time) (bool, error)
	RevokeGrant(ctx context.Context, id string, now time.Time) (bool, error)
	DeletePending(ctx context.Context, senderID, receiverID string) (bool, error)
	ListByReceiver(ctx context.Context, receiverID string, limit, offset int) ([]*models.Interest, error)
	ListBySender(ctx context.Context, senderID string, limit, offset int) ([]*models.Interest, error)
}

// UserDirectory resolves user IDs to profiles.
// Implemented by repository.UserRepository.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationSink accepts notifications for delivery. Failures are logged
// by the engine and never roll back the state transition that produced them.
type NotificationSink interface {
	Notify(ctx context.Context, userID, typ, message string, metadata map[string]any) error
}

// Notification types emitted by the engine
const (
	NotificationTypeInterest         = "interest"
	NotificationTypeMatch            = "match"
	NotificationTypeInterestAccepted = "interest_accepted"
	NotificationTypeInterestDeclined = "interest_declined"
	NotificationTypePhotoGranted     = "photo_access_granted"
	NotificationTypePhotoRevoked     = "photo_access_revoked"
)

// InterestService owns all state transitions of interest records: sending,
// responding, mutual-match detection, photo-access grants and revocations.
type InterestService struct {
	store         InterestStore
	users         UserDirectory
	notifications NotificationSink
	now           func() time.Time
}

// NewInterestService creates a new interest service
func NewInterestService(store InterestStore, users UserDirectory, notifications NotificationSink) *InterestService {
	return &InterestService{
		store:         store,
		users:         users,
		notifications: notifications,
		now:           time.Now,
	}
}

// SendInterest records senderID's interest in receiverID. Sending twice is
// idempotent and returns the existing record. When the receiver has a
// pending interest in the sender, both records are flipped to accepted
// atomically and mutual is true for exactly one of two concurrent callers.
func (s *InterestService) SendInterest(ctx context.Context, senderID, receiverID, message string) (interest *models.Interest, mutual bool, err error) {
	if senderID == receiverID {
		return nil, false, fmt.Errorf("cannot send interest to yourself: %w", models.ErrInvalidState)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, false, fmt.Errorf("sender: %w", err)
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, false, fmt.Errorf("receiver: %w", err)
	}

	existing, err := s.store.GetByPair(ctx, senderID, receiverID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	now := s.now()
	interest = &models.Interest{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.InterestStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if message != "" {
		interest.Message = &message
	}

	created, err := s.store.Create(ctx, interest)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// lost the insert race to an identical send; same contract as the
		// sequential idempotent case
		existing, err := s.store.GetByPair(ctx, senderID, receiverID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.notify(ctx, receiverID, NotificationTypeInterest,
		fmt.Sprintf("%s is interested in your profile", sender.DisplayName),
		map[string]any{"interest_id": interest.ID, "sender_id": senderID})

	// Mutuality: a pending counterpart means both users expressed interest
	// independently. The flip is conditional on both rows still being
	// pending, so a decline or a concurrent flip that landed first wins.
	counterpart, err := s.store.GetByPair(ctx, receiverID, senderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return interest, false, nil
		}
		return nil, false, err
	}
	if counterpart.Status != models.InterestStatusPending {
		return interest, false, nil
	}

	flipNow := s.now()
	flipped, err := s.store.AcceptMutual(ctx, interest.ID, counterpart.ID, flipNow)
	if err != nil {
		return nil, false, err
	}
	if !flipped {
		// raced with the counterpart's own SendInterest or a respond;
		// re-read so the caller sees the settled state
		settled, err := s.store.GetByID(ctx, interest.ID)
		if err != nil {
			return nil, false, err
		}
		return settled, false, nil
	}

	interest.Status = models.InterestStatusAccepted
	interest.UpdatedAt = flipNow

	log.Info().
		Str("interest_id", interest.ID).
		Str("counterpart_id", counterpart.ID).
		Str("sender_id", senderID).
		Str("receiver_id", receiverID).
		Msg("Mutual interest matched")

	matchMeta := map[string]any{"interest_id": interest.ID}
	s.notify(ctx, senderID, NotificationTypeMatch,
		fmt.Sprintf("You matched with %s", receiver.DisplayName), matchMeta)
	s.notify(ctx, receiverID, NotificationTypeMatch,
		fmt.Sprintf("You matched with %s", sender.DisplayName), matchMeta)

	return interest, true, nil
}

// RespondToInterest lets the addressee of a pending interest accept or
// decline it. Only the receiver may respond, and only once.
func (s *InterestService) RespondToInterest(ctx context.Context, interestID, responderID string, accept bool) (*models.Interest, error) {
	interest, err := s.store.GetByID(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if interest.ReceiverID != responderID {
		return nil, fmt.Errorf("only the receiver may respond: %w", models.ErrForbidden)
	}
	if interest.Status != models.InterestStatusPending {
		return nil, fmt.Errorf("interest already %s: %w", interest.Status, models.ErrInvalidState)
	}

	to := models.InterestStatusDeclined
	notifType := NotificationTypeInterestDeclined
	outcome := "declined"
	if accept {
		to = models.InterestStatusAccepted
		notifType = NotificationTypeInterestAccepted
		outcome = "accepted"
	}

	now := s.now()
	ok, err := s.store.SetStatus(ctx, interestID, models.InterestStatusPending, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// already settled by a concurrent respond or a mutual flip
		return nil, fmt.Errorf("interest no longer pending: %w", models.ErrInvalidState)
	}
	interest.Status = to
	interest.UpdatedAt = now

	outcomeMsg := fmt.Sprintf("Your interest was %s", outcome)
	if responder, err := s.users.GetByID(ctx, responderID); err == nil && responder.DisplayName != "" {
		outcomeMsg = fmt.Sprintf("%s %s your interest", responder.DisplayName, outcome)
	}
	s.notify(ctx, interest.SenderID, notifType, outcomeMsg,
		map[string]any{"interest_id": interest.ID})

	return interest, nil
}

// GrantPhotoAccess lets the receiver of an accepted interest grant the
// sender visibility of their photos for the given duration. Granting again
// overwrites the prior grant and clears a revocation.
func (s *InterestService) GrantPhotoAccess(ctx context.Context, interestID, granterID string, duration models.PhotoAccessDuration) (*models.Interest, error) {
	if !duration.Valid() {
		return nil, fmt.Errorf("unknown photo access duration %q: %w", duration, models.ErrInvalidState)
	}

	interest, err := s.store.GetByID(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if interest.ReceiverID != granterID {
		return nil, fmt.Errorf("only the receiver may grant photo access: %w", models.ErrForbidden)
	}
	if interest.Status != models.InterestStatusAccepted {
		return nil, fmt.Errorf("interest is %s, not accepted: %w", interest.Status, models.ErrInvalidState)
	}

	now := s.now()
	var expiresAt *time.Time
	if ttl, ok := duration.TTL(); ok {
		t := now.Add(ttl)
		expiresAt = &t
	}

	ok, err := s.store.SetGrant(ctx, interestID, duration, now, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("interest no longer accepted: %w", models.ErrInvalidState)
	}

	interest.PhotoAccessDuration = &duration
	interest.PhotoAccessGrantedAt = &now
	interest.PhotoAccessExpiresAt = expiresAt
	interest.PhotoAccessRevoked = false
	interest.PhotoAccessRevokedAt = nil
	interest.UpdatedAt = now

	s.notify(ctx, interest.SenderID, NotificationTypePhotoGranted,
		"You have been granted photo access",
		map[string]any{"interest_id": interest.ID, "duration": string(duration)})

	return interest, nil
}

// RevokePhotoAccess lets the receiver withdraw an active photo-access grant
func (s *InterestService) RevokePhotoAccess(ctx context.Context, interestID, revokerID string) error {
	interest, err := s.store.GetByID(ctx, interestID)
	if err != nil {
		return err
	}
	if interest.ReceiverID != revokerID {
		return fmt.Errorf("only the receiver may revoke photo access: %w", models.ErrForbidden)
	}
	if !interest.HasPhotoGrant() || interest.PhotoAccessRevoked {
		return fmt.Errorf("no active photo access grant: %w", models.ErrInvalidState)
	}

	ok, err := s.store.RevokeGrant(ctx, interestID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no active photo access grant: %w", models.ErrInvalidState)
	}

	s.notify(ctx, interest.SenderID, NotificationTypePhotoRevoked,
		"Your photo access has been revoked",
		map[string]any{"interest_id": interest.ID})

	return nil
}

// UndoInterest retracts a pending interest the sender no longer stands by.
// An interest the other party already acted on cannot be retracted.
func (s *InterestService) UndoInterest(ctx context.Context, senderID, receiverID string) error {
	interest, err := s.store.GetByPair(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if interest.Status != models.InterestStatusPending {
		return fmt.Errorf("interest already %s: %w", interest.Status, models.ErrInvalidState)
	}

	ok, err := s.store.DeletePending(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("interest no longer pending: %w", models.ErrInvalidState)
	}
	return nil
}

// ListReceived retrieves interests addressed to a user
func (s *InterestService) ListReceived(ctx context.Context, userID string, limit, offset int) ([]*models.Interest, error) {
	return s.store.ListByReceiver(ctx, userID, clampLimit(limit), clampOffset(offset))
}

// ListSent retrieves interests sent by a user
func (s *InterestService) ListSent(ctx context.Context, userID string, limit, offset int) ([]*models.Interest, error) {
	return s.store.ListBySender(ctx, userID, clampLimit(limit), clampOffset(offset))
}

// AreMatched reports whether an accepted interest exists between the two
// users in either direction. Used to gate messaging.
func (s *InterestService) AreMatched(ctx context.Context, userID, otherID string) (bool, error) {
	for _, pair := range [][2]string{{userID, otherID}, {otherID, userID}} {
		in, err := s.store.GetByPair(ctx, pair[0], pair[1])
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return false, err
		}
		if in.Status == models.InterestStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

// notify sends a notification and swallows failures: the interest record is
// the source of truth, a lost notification never rolls back a transition.
func (s *InterestService) notify(ctx context.Context, userID, typ, message string, metadata map[string]any) {
	if err := s.notifications.Notify(ctx, userID, typ, message, metadata); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("type", typ).
			Msg("Failed to send notification")
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
