package services

import (
	"context"
	"fmt"
	"time"

	"matrimony-backend/internal/config"
	"matrimony-backend/internal/models"
	"matrimony-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// NotificationService persists notifications and fans them out over
// WebSocket (when the user is online) and APNs (when a push token is
// registered). It implements NotificationSink for the interest engine.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	userRepo         *repository.UserRepository
	hub              *WSHub
	apnsClient       *apns2.Client
	apnsTopic        string
}

// NewNotificationService creates a new notification service. APNs push is
// disabled when the key path is not configured.
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	hub *WSHub,
	apnsCfg config.APNsConfig,
) (*NotificationService, error) {
	s := &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		hub:              hub,
		apnsTopic:        apnsCfg.Topic,
	}

	if apnsCfg.KeyPath != "" {
		authKey, err := token.AuthKeyFromFile(apnsCfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
		}
		t := &token.Token{
			AuthKey: authKey,
			KeyID:   apnsCfg.KeyID,
			TeamID:  apnsCfg.TeamID,
		}
		client := apns2.NewTokenClient(t)
		if apnsCfg.Production {
			client = client.Production()
		} else {
			client = client.Development()
		}
		s.apnsClient = client
	}

	return s, nil
}

// Notify stores a notification row and pushes it out. Only the database
// write can fail the call; push delivery is best effort.
func (s *NotificationService) Notify(ctx context.Context, userID, typ, message string, metadata map[string]any) error {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return err
	}

	if s.hub.IsOnline(userID) {
		if err := s.hub.PushNotification(userID, n); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to push notification over WebSocket")
		}
	}

	s.pushAPNs(ctx, userID, n)
	return nil
}

// pushAPNs sends the notification to the user's device if push is
// configured and the user registered a token
func (s *NotificationService) pushAPNs(ctx context.Context, userID string, n *models.Notification) {
	if s.apnsClient == nil {
		return
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.PushToken == nil {
		return
	}

	p := payload.NewPayload().
		Alert(n.Message).
		Custom("type", n.Type).
		Custom("notification_id", n.ID)

	notification := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       s.apnsTopic,
		Payload:     p,
	}

	res, err := s.apnsClient.PushWithContext(ctx, notification)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to push APNs notification")
		return
	}
	if !res.Sent() {
		log.Warn().
			Str("user_id", userID).
			Int("status", res.StatusCode).
			Str("reason", res.Reason).
			Msg("APNs notification rejected")
	}
}

// List retrieves a user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	return s.notificationRepo.ListByUserID(ctx, userID, unreadOnly, clampLimit(limit), clampOffset(offset))
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
