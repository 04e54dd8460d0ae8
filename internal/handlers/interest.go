package handlers

import (
	"encoding/json"
	"net/http"

	"matrimony-backend/internal/middleware"
	"matrimony-backend/internal/models"
	"matrimony-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// InterestHandler handles interest-related HTTP requests
type InterestHandler struct {
	interestService *services.InterestService
}

// NewInterestHandler creates a new interest handler
func NewInterestHandler(interestService *services.InterestService) *InterestHandler {
	return &InterestHandler{
		interestService: interestService,
	}
}

// SendInterestRequest represents the request body for sending an interest
type SendInterestRequest struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message,omitempty"`
}

// SendInterestResponse wraps the interest with the mutual-match flag
type SendInterestResponse struct {
	Interest *models.Interest `json:"interest"`
	Mutual   bool             `json:"mutual"`
}

// SendInterest handles POST /api/v1/interests
func (h *InterestHandler) SendInterest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReceiverID == "" {
		respondError(w, "receiver_id is required", http.StatusBadRequest)
		return
	}

	interest, mutual, err := h.interestService.SendInterest(ctx, userID, req.ReceiverID, req.Message)
	if err != nil {
		log.Error().
			Err(err).
			Str("sender_id", userID).
			Str("receiver_id", req.ReceiverID).
			Msg("Failed to send interest")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("interest_id", interest.ID).
		Str("sender_id", userID).
		Str("receiver_id", req.ReceiverID).
		Bool("mutual", mutual).
		Msg("Interest sent")

	respondJSON(w, http.StatusOK, SendInterestResponse{Interest: interest, Mutual: mutual})
}

// RespondRequest represents the request body for responding to an interest
type RespondRequest struct {
	Decision string `json:"decision"`
}

// Respond handles POST /api/v1/interests/{interest_id}/respond
func (h *InterestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	interestID := chi.URLParam(r, "interest_id")

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Decision != "accept" && req.Decision != "decline" {
		respondError(w, "decision must be accept or decline", http.StatusBadRequest)
		return
	}

	interest, err := h.interestService.RespondToInterest(ctx, interestID, userID, req.Decision == "accept")
	if err != nil {
		log.Error().
			Err(err).
			Str("interest_id", interestID).
			Str("responder_id", userID).
			Msg("Failed to respond to interest")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("interest_id", interestID).
		Str("responder_id", userID).
		Str("decision", req.Decision).
		Msg("Interest responded")

	respondJSON(w, http.StatusOK, interest)
}

// GrantPhotoAccessRequest represents the request body for granting access
type GrantPhotoAccessRequest struct {
	Duration models.PhotoAccessDuration `json:"duration"`
}

// GrantPhotoAccess handles POST /api/v1/interests/{interest_id}/photo-access
func (h *InterestHandler) GrantPhotoAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	interestID := chi.URLParam(r, "interest_id")

	var req GrantPhotoAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Duration.Valid() {
		respondError(w, "unknown duration", http.StatusBadRequest)
		return
	}

	interest, err := h.interestService.GrantPhotoAccess(ctx, interestID, userID, req.Duration)
	if err != nil {
		log.Error().
			Err(err).
			Str("interest_id", interestID).
			Str("granter_id", userID).
			Msg("Failed to grant photo access")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("interest_id", interestID).
		Str("granter_id", userID).
		Str("duration", string(req.Duration)).
		Msg("Photo access granted")

	respondJSON(w, http.StatusOK, interest)
}

// RevokePhotoAccess handles DELETE /api/v1/interests/{interest_id}/photo-access
func (h *InterestHandler) RevokePhotoAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	interestID := chi.URLParam(r, "interest_id")

	if err := h.interestService.RevokePhotoAccess(ctx, interestID, userID); err != nil {
		log.Error().
			Err(err).
			Str("interest_id", interestID).
			Str("revoker_id", userID).
			Msg("Failed to revoke photo access")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("interest_id", interestID).
		Str("revoker_id", userID).
		Msg("Photo access revoked")

	w.WriteHeader(http.StatusNoContent)
}

// Undo handles DELETE /api/v1/interests/sent/{receiver_id}
func (h *InterestHandler) Undo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	receiverID := chi.URLParam(r, "receiver_id")

	if err := h.interestService.UndoInterest(ctx, userID, receiverID); err != nil {
		log.Error().
			Err(err).
			Str("sender_id", userID).
			Str("receiver_id", receiverID).
			Msg("Failed to undo interest")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("sender_id", userID).
		Str("receiver_id", receiverID).
		Msg("Interest undone")

	w.WriteHeader(http.StatusNoContent)
}

// ListReceived handles GET /api/v1/interests/received
func (h *InterestHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	limit, offset := parsePagination(r)

	interests, err := h.interestService.ListReceived(ctx, userID, limit, offset)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"interests": interests})
}

// ListSent handles GET /api/v1/interests/sent
func (h *InterestHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	limit, offset := parsePagination(r)

	interests, err := h.interestService.ListSent(ctx, userID, limit, offset)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"interests": interests})
}
