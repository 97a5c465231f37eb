package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/postboard-be/internal/apperror"
	"github.com/isdelr/postboard-be/internal/auth"
	"github.com/isdelr/postboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

// PostHandler handles HTTP requests related to posts.
type PostHandler struct {
	service services.PostServiceProvider
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider) *PostHandler {
	return &PostHandler{service: service}
}

// PostPayload is the body of post create and update requests.
type PostPayload struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// CreatedResponse reports a created post.
type CreatedResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// Create handles the request to create a new post owned by the caller.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload PostPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), user, payload.Title, payload.Content)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create post")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreatedResponse{Message: "Post created successfully", ID: post.ID})
}

// Get handles the request to get a single post by its ID. Anyone may read.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Update handles the request to overwrite a post's title and content.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A missing post is 404 whatever credentials came with the request.
	if _, err := h.service.GetPost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload PostPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.service.UpdatePost(r.Context(), user, id, payload.Title, payload.Content); err != nil {
		if apperror.Is(err, apperror.ForbiddenError) {
			log.Warn().Int64("post_id", id).Int64("user_id", user.ID).Msg("Rejected update by non-owner")
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post updated successfully"})
}

// Delete handles the request to delete a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.service.GetPost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.DeletePost(r.Context(), user, id); err != nil {
		if apperror.Is(err, apperror.ForbiddenError) {
			log.Warn().Int64("post_id", id).Int64("user_id", user.ID).Msg("Rejected delete by non-owner")
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

func postID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "post_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NewValidationError("post_id must be an integer", err)
	}
	return id, nil
}
