package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
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

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	dir := store.NewMemoryDirectory()
	hasher := password.NewHasherWithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := services.NewCredentialService(dir, hasher, nil, logger)
	tokens := token.NewService("test-secret")

	router := chi.NewRouter()
	Router(router, creds, tokens)
	return router
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFormsRender(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/login", "/signup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), `name="email"`)
	}
}

func TestSignupSetsSessionAndRedirects(t *testing.T) {
	router := newTestRouter(t)

	rec := postForm(router, "/signup", url.Values{
		"username": {"alice"},
		"email":    {"alice@x.com"},
		"password": {"secret123"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	session := cookies[0]
	assert.Equal(t, sessionCookie, session.Name)
	assert.NotEmpty(t, session.Value)
	assert.True(t, session.HttpOnly)

	// The session cookie grants access to the profile page.
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(session)
	profile := httptest.NewRecorder()
	router.ServeHTTP(profile, req)
	assert.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), "alice@x.com")
}

func TestLoginFailureRedirectsWithGenericError(t *testing.T) {
	router := newTestRouter(t)

	postForm(router, "/signup", url.Values{
		"username": {"alice"},
		"email":    {"alice@x.com"},
		"password": {"secret123"},
	})

	wrongPassword := postForm(router, "/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"wrong"},
	})
	unknownEmail := postForm(router, "/login", url.Values{
		"email":    {"nobody@x.com"},
		"password": {"secret123"},
	})

	require.Equal(t, http.StatusSeeOther, wrongPassword.Code)
	require.Equal(t, http.StatusSeeOther, unknownEmail.Code)
	// Redirect targets are identical: no user-existence oracle in the web
	// flow either.
	assert.Equal(t, wrongPassword.Header().Get("Location"), unknownEmail.Header().Get("Location"))
	assert.Contains(t, wrongPassword.Header().Get("Location"), "/login?error=")
}

func TestProfileWithoutSessionRedirects(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
