package models

import "time"

// User represents a registered member
type User struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token,omitempty"`
	PushToken   *string   `json:"push_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InterestStatus is the lifecycle status of an interest
type InterestStatus string

const (
	InterestStatusPending  InterestStatus = "pending"
	InterestStatusAccepted InterestStatus = "accepted"
	InterestStatusDeclined InterestStatus = "declined"
)

// PhotoAccessDuration is how long a photo-access grant stays valid
type PhotoAccessDuration string

const (
	PhotoAccessOneDay    PhotoAccessDuration = "1_day"
	PhotoAccessThreeDays PhotoAccessDuration = "3_days"
	PhotoAccessOneWeek   PhotoAccessDuration = "1_week"
	PhotoAccessOneMonth  PhotoAccessDuration = "1_month"
	PhotoAccessPermanent PhotoAccessDuration = "permanent"
)

// Valid reports whether d is one of the known durations
func (d PhotoAccessDuration) Valid() bool {
	switch d {
	case PhotoAccessOneDay, PhotoAccessThreeDays, PhotoAccessOneWeek,
		PhotoAccessOneMonth, PhotoAccessPermanent:
		return true
	}
	return false
}

// TTL returns the wall-clock lifetime of a grant with this duration.
// ok is false for the permanent sentinel, which never expires.
func (d PhotoAccessDuration) TTL() (ttl time.Duration, ok bool) {
	switch d {
	case PhotoAccessOneDay:
		return 24 * time.Hour, true
	case PhotoAccessThreeDays:
		return 3 * 24 * time.Hour, true
	case PhotoAccessOneWeek:
		return 7 * 24 * time.Hour, true
	case PhotoAccessOneMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// Interest represents a directed expression of interest from one user to
// another. At most one row exists per (sender_id, receiver_id) pair.
// The photo-access fields are only populated once the receiver of an
// accepted interest grants the sender visibility of their photos.
type Interest struct {
	ID         string         `json:"id"`
	SenderID   string         `json:"sender_id"`
	ReceiverID string         `json:"receiver_id"`
	Status     InterestStatus `json:"status"`
	Message    *string        `json:"message,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	PhotoAccessDuration  *PhotoAccessDuration `json:"photo_access_duration,omitempty"`
	PhotoAccessGrantedAt *time.Time           `json:"photo_access_granted_at,omitempty"`
	PhotoAccessExpiresAt *time.Time           `json:"photo_access_expires_at,omitempty"`
	PhotoAccessRevoked   bool                 `json:"photo_access_revoked"`
	PhotoAccessRevokedAt *time.Time           `json:"photo_access_revoked_at,omitempty"`
}

// HasPhotoGrant reports whether a grant was ever set on this interest
func (i *Interest) HasPhotoGrant() bool {
	return i.PhotoAccessGrantedAt != nil
}

// Photo represents a profile photo owned by a user
type Photo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	S3URL     string    `json:"s3_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification represents a stored notification for a user
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// Message represents a chat message between two matched users
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
