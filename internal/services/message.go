package services

import (
	"context"
	"fmt"
	"time"

	"matrimony-backend/internal/models"
	"matrimony-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MessageService handles chat between matched users
type MessageService struct {
	messageRepo     *repository.MessageRepository
	interestService *InterestService
	hub             *WSHub
}

// NewMessageService creates a new message service
func NewMessageService(messageRepo *repository.MessageRepository, interestService *InterestService, hub *WSHub) *MessageService {
	return &MessageService{
		messageRepo:     messageRepo,
		interestService: interestService,
		hub:             hub,
	}
}

// SendMessage sends a chat message. Messaging is only open between users
// with an accepted interest in either direction.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID, body string) (*models.Message, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("cannot message yourself: %w", models.ErrInvalidState)
	}

	matched, err := s.interestService.AreMatched(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("users are not matched: %w", models.ErrForbidden)
	}

	message := &models.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if s.hub.IsOnline(receiverID) {
		if err := s.hub.PushMessage(receiverID, message); err != nil {
			log.Error().Err(err).Str("receiver_id", receiverID).Msg("Failed to push message over WebSocket")
		}
	}

	return message, nil
}

// ListConversation retrieves the conversation between two users
func (s *MessageService) ListConversation(ctx context.Context, userID, otherID string, limit, offset int) ([]*models.Message, error) {
	return s.messageRepo.ListConversation(ctx, userID, otherID, clampLimit(limit), clampOffset(offset))
}
