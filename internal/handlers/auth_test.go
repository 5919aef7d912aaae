package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub-app/apiserver/internal/password"
	"github.com/userhub-app/apiserver/internal/services"
	"github.com/userhub-app/apiserver/internal/store"
	"github.com/userhub-app/apiserver/internal/token"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (*chi.Mux, *store.MemoryDirectory) {
	t.Helper()

	dir := store.NewMemoryDirectory()
	hasher := password.NewHasherWithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := services.NewCredentialService(dir, hasher, nil, logger)
	tokens := token.NewService("test-secret")
	authMiddleware := RequireAuth(tokens)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, creds, tokens)
		r.Route("/users", func(r chi.Router) {
			UserRouter(r, creds, nil, authMiddleware)
		})
	})
	return router, dir
}

func doJSON(t *testing.T, router http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterReturnsNoPasswordField(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := rec.Body.String()
	assert.NotContains(t, body, "secret123")
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "digest")

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@x.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/register", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"imposter","email":"alice@x.com","password":"other456"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already in use")
}

func TestLoginSuccess(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/login",
		`{"email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@x.com", resp.User.Email)
}

func TestLoginFailurePayloadsAreByteIdentical(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/login",
		`{"email":"alice@x.com","password":"wrong"}`, "")
	unknownEmail := doJSON(t, router, http.MethodPost, "/api/login",
		`{"email":"nobody@x.com","password":"secret123"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.True(t, bytes.Equal(wrongPassword.Body.Bytes(), unknownEmail.Body.Bytes()))
	assert.Contains(t, wrongPassword.Body.String(), "Incorrect email or password.")
}

func TestMeRequiresValidToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	me := doJSON(t, router, http.MethodGet, "/api/me", "", resp.Token)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "alice@x.com")

	// Missing, malformed, and tampered credentials all yield a bare 401.
	noHeader := doJSON(t, router, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, noHeader.Code)

	malformed := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	malformed.Header.Set("Authorization", "Basic abc123")
	malformedRec := httptest.NewRecorder()
	router.ServeHTTP(malformedRec, malformed)
	assert.Equal(t, http.StatusUnauthorized, malformedRec.Code)

	tampered := doJSON(t, router, http.MethodGet, "/api/me", "", resp.Token+"x")
	assert.Equal(t, http.StatusUnauthorized, tampered.Code)

	assert.Equal(t, noHeader.Body.String(), tampered.Body.String())
}
