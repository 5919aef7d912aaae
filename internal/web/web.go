// Package web serves the server-rendered HTML surface: signup and login
// forms with redirect-based outcomes, and a profile page. It is thin glue
// over the same credential and token services the JSON API uses; the
// session is the bearer token carried in an HttpOnly cookie.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/userhub-app/apiserver/internal/services"
	"github.com/userhub-app/apiserver/internal/store"
	"github.com/userhub-app/apiserver/internal/token"
	"github.com/userhub-app/apiserver/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "userhub_session"

// genericLoginError mirrors the API's unified credential failure; the form
// must not reveal whether the email exists.
const genericLoginError = "Incorrect email or password."

// Handler renders the HTML views.
type Handler struct {
	creds  *services.CredentialService
	tokens *token.Service
	tmpl   *template.Template
}

// NewHandler constructs the web handler, parsing the embedded templates.
func NewHandler(creds *services.CredentialService, tokens *token.Service) *Handler {
	return &Handler{
		creds:  creds,
		tokens: tokens,
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Router registers the web routes on the given router.
func Router(r chi.Router, creds *services.CredentialService, tokens *token.Service) {
	handler := NewHandler(creds, tokens)

	r.Get("/", handler.Home)
	r.Get("/signup", handler.SignupForm)
	r.Post("/signup", handler.Signup)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/profile", handler.Profile)
	r.Get("/logout", handler.Logout)
}

type pageData struct {
	Title string
	Error string
	User  *types.User
}

func (h *Handler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// Home redirects to the profile when a valid session exists, otherwise to
// the login form.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessionUser(r); err == nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html", pageData{
		Title: "Sign up",
		Error: r.URL.Query().Get("error"),
	})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/signup", "invalid form submission")
		return
	}

	user, err := h.creds.Register(
		r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			redirectWithError(w, r, "/signup", "all fields are required")
		case errors.Is(err, store.ErrDuplicateEmail):
			redirectWithError(w, r, "/signup", "email already in use")
		default:
			redirectWithError(w, r, "/signup", "something went wrong, please try again")
		}
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", pageData{
		Title: "Log in",
		Error: r.URL.Query().Get("error"),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/login", genericLoginError)
		return
	}

	user, _, err := h.creds.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			redirectWithError(w, r, "/login", genericLoginError)
			return
		}
		redirectWithError(w, r, "/login", "something went wrong, please try again")
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.render(w, "profile.html", pageData{Title: "Profile", User: &user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user types.User) {
	tokenString, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		redirectWithError(w, r, "/login", "something went wrong, please try again")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(token.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) sessionUser(r *http.Request) (types.User, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return types.User{}, err
	}
	claims, err := h.tokens.Verify(cookie.Value)
	if err != nil {
		return types.User{}, err
	}
	return h.creds.Get(r.Context(), claims.Subject)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}
