package handlers

import (
	"encoding/json"
	"net/http"

	"matrimony-backend/internal/middleware"
	"matrimony-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
	guard        *services.PhotoAccessGuard
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, guard *services.PhotoAccessGuard) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		guard:        guard,
	}
}

// UploadRequest represents the request body for requesting an upload URL
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// UploadPhoto handles POST /api/v1/photos/upload
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	response, err := h.photoService.GetPreSignedURL(ctx, userID, req.ContentType)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to generate pre-signed URL")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("photo_id", response.PhotoID).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, response)
}

// ListUserPhotos handles GET /api/v1/users/{user_id}/photos.
// Photos of anyone but the viewer are gated by the photo-access guard;
// a denied view returns 403 with the guard's reason.
func (h *PhotoHandler) ListUserPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	subjectID := chi.URLParam(r, "user_id")

	listing, err := h.photoService.ListUserPhotos(ctx, viewerID, subjectID)
	if err != nil {
		log.Error().
			Err(err).
			Str("viewer_id", viewerID).
			Str("subject_id", subjectID).
			Msg("Failed to list photos")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	status := http.StatusOK
	if !listing.Access.Granted {
		status = http.StatusForbidden
	}
	respondJSON(w, status, listing)
}

// CheckPhotoAccess handles GET /api/v1/users/{user_id}/photo-access
func (h *PhotoHandler) CheckPhotoAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	subjectID := chi.URLParam(r, "user_id")

	decision, err := h.guard.HasPhotoAccess(ctx, viewerID, subjectID)
	if err != nil {
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// DeletePhoto handles DELETE /api/v1/photos/{photo_id}
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	photoID := chi.URLParam(r, "photo_id")

	if err := h.photoService.DeletePhoto(ctx, photoID, userID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("photo_id", photoID).
			Msg("Failed to delete photo")
		respondError(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
