package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/userhub-app/apiserver/internal/services"
	"github.com/userhub-app/apiserver/internal/storage"
	"github.com/userhub-app/apiserver/internal/store"
	"github.com/userhub-app/apiserver/types"
)

// UserHandler provides HTTP handlers for the user collection.
type UserHandler struct {
	creds *services.CredentialService
}

// NewUserHandler constructs a handler over the credential service.
func NewUserHandler(creds *services.CredentialService) *UserHandler {
	return &UserHandler{creds: creds}
}

// UserRouter registers user collection routes on the given router,
// including the avatar endpoints. avatars may be nil when no object-storage
// backend is configured.
func UserRouter(r chi.Router, creds *services.CredentialService, avatars *storage.AvatarStore, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(creds)
	avatarHandler := NewAvatarHandler(creds, avatars)

	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(authMiddleware).Put("/", handler.UpdateUser)
		r.With(authMiddleware).Delete("/", handler.DeleteUser)
		r.Get("/avatar", avatarHandler.GetAvatar)
		r.With(authMiddleware).Put("/avatar", avatarHandler.PutAvatar)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.creds.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Items: users, Total: len(users)})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	user, err := h.creds.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.creds.UpdateProfile(r.Context(), id, services.ProfilePatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "email already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.creds.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Total int          `json:"total"`
}
