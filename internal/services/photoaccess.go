package services

import (
	"context"
	"errors"
	"time"

	"matrimony-backend/internal/models"
)

// AccessReason explains why photo access was denied
type AccessReason string

const (
	AccessReasonNoAcceptedInterest AccessReason = "no_accepted_interest"
	AccessReasonRevoked            AccessReason = "revoked"
	AccessReasonExpired            AccessReason = "expired"
)

// AccessDecision is the guard's answer for one (viewer, subject) pair
type AccessDecision struct {
	Granted          bool         `json:"granted"`
	Reason           AccessReason `json:"reason,omitempty"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	RemainingSeconds *int64       `json:"remaining_seconds,omitempty"`
}

// PhotoAccessGuard answers "can viewer V see subject S's photos right now".
// It is a pure read-side predicate over interest records: expiry is
// evaluated lazily at read time, there is no background sweep, and an
// expired grant keeps its fields for history.
type PhotoAccessGuard struct {
	store InterestStore
	now   func() time.Time
}

// NewPhotoAccessGuard creates a new photo access guard
func NewPhotoAccessGuard(store InterestStore) *PhotoAccessGuard {
	return &PhotoAccessGuard{store: store, now: time.Now}
}

// HasPhotoAccess checks whether viewerID may see subjectID's photos.
// Direction matters: the viewer must be the sender of the interest, since
// the receiver is the one who grants visibility of their own photos.
// Side-effect free; must run on every photo-serving path where the viewer
// is not the subject.
func (g *PhotoAccessGuard) HasPhotoAccess(ctx context.Context, viewerID, subjectID string) (*AccessDecision, error) {
	if viewerID == subjectID {
		return &AccessDecision{Granted: true}, nil
	}

	interest, err := g.store.GetByPair(ctx, viewerID, subjectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &AccessDecision{Granted: false, Reason: AccessReasonNoAcceptedInterest}, nil
		}
		return nil, err
	}

	if interest.Status != models.InterestStatusAccepted ||
		!interest.HasPhotoGrant() || interest.PhotoAccessDuration == nil {
		return &AccessDecision{Granted: false, Reason: AccessReasonNoAcceptedInterest}, nil
	}
	if interest.PhotoAccessRevoked {
		return &AccessDecision{Granted: false, Reason: AccessReasonRevoked}, nil
	}

	if *interest.PhotoAccessDuration == models.PhotoAccessPermanent {
		return &AccessDecision{Granted: true}, nil
	}

	expiresAt := interest.PhotoAccessExpiresAt
	if expiresAt == nil || g.now().After(*expiresAt) {
		return &AccessDecision{Granted: false, Reason: AccessReasonExpired, ExpiresAt: expiresAt}, nil
	}

	remaining := int64(expiresAt.Sub(g.now()).Seconds())
	return &AccessDecision{
		Granted:          true,
		ExpiresAt:        expiresAt,
		RemainingSeconds: &remaining,
	}, nil
}
