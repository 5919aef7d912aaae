package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/userhub-app/apiserver/internal/services"
	"github.com/userhub-app/apiserver/internal/storage"
	"github.com/userhub-app/apiserver/internal/store"
)

const maxAvatarBytes = 5 << 20

// AvatarHandler serves user avatar blobs from object storage.
type AvatarHandler struct {
	creds   *services.CredentialService
	avatars *storage.AvatarStore
}

// NewAvatarHandler constructs a handler; avatars may be nil when no storage
// backend is configured, in which case the endpoints answer 503.
func NewAvatarHandler(creds *services.CredentialService, avatars *storage.AvatarStore) *AvatarHandler {
	return &AvatarHandler{creds: creds, avatars: avatars}
}

func (h *AvatarHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage not configured")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if _, err := h.creds.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read avatar")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "avatar body is required")
		return
	}
	if len(body) > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar too large")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	key, err := h.avatars.Put(r.Context(), id, bytes.NewReader(body), int64(len(body)), contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	if _, err := h.creds.SetAvatarKey(r.Context(), id, key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AvatarHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage not configured")
		return
	}

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
	if user.AvatarKey == "" {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}

	reader, err := h.avatars.Get(r.Context(), user.AvatarKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch avatar")
		return
	}
	defer reader.Close()

	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
