package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-yearly-albums/internal/albums"
	"github.com/justestif/go-spotify-yearly-albums/internal/auth"
	"github.com/justestif/go-spotify-yearly-albums/internal/config"
	"github.com/justestif/go-spotify-yearly-albums/internal/render"
	"github.com/justestif/go-spotify-yearly-albums/internal/spotify"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 300 // seconds
)

// Handlers contains the HTTP handlers for the web application.
type Handlers struct {
	auth       *auth.Manager
	sessions   SessionManager
	templates  *Templates
	cache      *albums.Cache
	compositor *render.Compositor
	perMonth   int
	logger     *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(manager *auth.Manager, sessions SessionManager, templates *Templates, cache *albums.Cache, compositor *render.Compositor, perMonth int, logger *log.Logger) *Handlers {
	return &Handlers{
		auth:       manager,
		sessions:   sessions,
		templates:  templates,
		cache:      cache,
		compositor: compositor,
		perMonth:   config.ClampPerMonth(perMonth),
		logger:     logger,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Spotify Yearly Albums",
			CurrentPath: r.URL.Path,
		},
		Authenticated: session != nil,
	}
	if session != nil {
		data.User = &UserData{ID: session.UserID, Name: session.UserName}
	}

	h.renderPage(w, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	url, state := h.auth.BeginAuthorization()

	// The expected state travels in a short-lived cookie so the callback
	// can verify it.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthStateMaxAge,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.auth.ExchangeCode(r.Context(),
		r.URL.Query().Get("code"),
		r.URL.Query().Get("state"),
		stateCookie.Value,
	)
	if errors.Is(err, auth.ErrStateMismatch) {
		h.logger.Warn("OAuth state mismatch on callback", "remote", r.RemoteAddr)
		http.Error(w, "State mismatch: possible cross-site request forgery, request rejected", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("code exchange failed", "err", err)
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotify.New(h.auth.APIClient(r.Context(), token))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Create(r.Context(), token, user.ID, user.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.sessions.SetCookie(w, session)
	http.Redirect(w, r, "/albums", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Albums renders the per-month album grid (GET /albums).
func (h *Handlers) Albums(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireFreshSession(w, r)
	if !ok {
		return
	}

	res, message, retryable := h.topAlbums(r, session)

	data := AlbumsPageData{
		PageData: PageData{
			Title:       "Your Top Albums",
			User:        &UserData{ID: session.UserID, Name: session.UserName},
			CurrentPath: r.URL.Path,
		},
		Buckets:   res,
		PerMonth:  h.perMonthParam(r),
		Message:   message,
		Retryable: retryable,
	}

	h.renderPage(w, "albums", data)
}

// AlbumsImage streams the composite PNG (GET /albums/image).
func (h *Handlers) AlbumsImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireFreshSession(w, r)
	if !ok {
		return
	}

	res, message, retryable := h.topAlbums(r, session)
	if retryable {
		http.Error(w, message, http.StatusServiceUnavailable)
		return
	}

	img := h.compositor.Compose(r.Context(), res, h.perMonthParam(r))

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		h.logger.Error("encoding composite image", "err", err)
		http.Error(w, "Failed to render image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="top_albums.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// requireFreshSession resolves the caller's session and transparently
// refreshes an expired token. A refresh failure destroys the session and
// forces re-authentication.
func (h *Handlers) requireFreshSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return nil, false
	}

	if !h.auth.IsExpired(session.Token, time.Now()) {
		return session, true
	}

	fresh, err := h.auth.Refresh(r.Context(), session.Token)
	if err != nil {
		h.logger.Warn("token refresh failed, forcing re-authentication", "user", session.UserID, "err", err)
		h.sessions.Delete(r.Context(), session.ID)
		h.sessions.ClearCookie(w)
		http.Redirect(w, r, "/auth/login", http.StatusTemporaryRedirect)
		return nil, false
	}

	h.sessions.UpdateToken(r.Context(), session.ID, fresh)
	session.Token = fresh
	return session, true
}

// topAlbums returns the bucketed albums for the session's user, memoized
// per (user, token fingerprint). The returned result always has the full
// 13-bucket shape, even on failure.
func (h *Handlers) topAlbums(r *http.Request, session *Session) (res albums.Result, message string, retryable bool) {
	if cached, ok := h.cache.Get(session.UserID, session.Token.AccessToken); ok {
		return cached, "", false
	}

	client := spotify.New(h.auth.APIClient(r.Context(), session.Token))
	res, err := albums.Aggregate(r.Context(), client, time.Now(), h.logger)
	if err != nil {
		if errors.Is(err, albums.ErrServiceUnavailable) {
			return res, "The request to Spotify timed out. Please try again later.", true
		}
		h.logger.Error("aggregation failed", "user", session.UserID, "err", err)
		return res, "An unexpected error occurred while loading your albums.", false
	}

	h.cache.Set(session.UserID, session.Token.AccessToken, res)
	return res, "", false
}

// perMonthParam reads the per_month query parameter, falling back to the
// configured default and clamping to the supported range.
func (h *Handlers) perMonthParam(r *http.Request) int {
	raw := r.URL.Query().Get("per_month")
	if raw == "" {
		return h.perMonth
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return h.perMonth
	}
	return config.ClampPerMonth(n)
}

// renderPage writes a rendered page template.
func (h *Handlers) renderPage(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template", "page", page, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}
