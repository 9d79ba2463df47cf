package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"jotter/cmd/identity"
	"jotter/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to the identity and session services.
type Handler struct {
	log   *slog.Logger
	audit *slog.Logger
	cfg   Config

	users    *identity.Service
	sessions *session.Service

	limiter *ipLimiter
	metrics *Metrics
	now     func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records auth outcomes on m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithClock overrides the wall clock used for issuance and verification.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users *identity.Service, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil {
		return nil, errors.New("auth: nil identity service")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}

	h := &Handler{
		log:      log,
		audit:    log.WithGroup("audit"),
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	if cfg.RatePerMinute > 0 {
		lim, err := newIPLimiter(cfg.RatePerMinute, cfg.RateBurst, cfg.RateCacheSize)
		if err != nil {
			return nil, err
		}
		h.limiter = lim
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.rateLimit("register", h.handleRegister))
	mux.HandleFunc("/auth/login", h.rateLimit("login", h.handleLogin))
	mux.HandleFunc("/auth/refresh", h.rateLimit("refresh", h.handleRefresh))
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.Handle("/auth/me", h.Authenticate(h.RequireIdentity(http.HandlerFunc(h.handleMe))))
}

// SessionService returns the underlying session service.
func (h *Handler) SessionService() *session.Service {
	if h == nil {
		return nil
	}
	return h.sessions
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)

	u, err := h.users.Register(ctx, identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Now:      now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			h.metrics.registerResult("email_taken")
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case identity.IsInvalidInput(err):
			h.metrics.registerResult("invalid_request")
			writeError(w, http.StatusBadRequest, "invalid_request", invalidInputMessage(err))
		default:
			h.log.Error("auth.register.fail", "err", err)
			h.metrics.registerResult("unavailable")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		}
		return
	}

	issued, err := h.sessions.IssueSession(ctx, now, toSessionIdentity(u))
	if err != nil {
		h.log.Error("auth.register.issue_session.fail", "user_id", u.ID, "err", err)
		h.metrics.registerResult("unavailable")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}

	h.metrics.registerResult("ok")
	h.auditRegister(ctx, u.ID, ip)
	h.setSessionCookies(w, issued, now)
	writeJSON(w, http.StatusCreated, SessionResponse{
		User:        toUserResponse(issued.Identity),
		AccessToken: issued.AccessToken,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)

	u, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		if identity.IsInvalidCredentials(err) {
			h.metrics.loginResult("invalid_credentials")
			h.auditLoginFailed(ctx, ip, "invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		h.metrics.loginResult("unavailable")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}

	issued, err := h.sessions.IssueSession(ctx, now, toSessionIdentity(u))
	if err != nil {
		h.log.Error("auth.login.issue_session.fail", "user_id", u.ID, "err", err)
		h.metrics.loginResult("unavailable")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}

	h.metrics.loginResult("ok")
	h.auditLoginSuccess(ctx, u.ID, ip)
	h.setSessionCookies(w, issued, now)
	writeJSON(w, http.StatusOK, SessionResponse{
		User:        toUserResponse(issued.Identity),
		AccessToken: issued.AccessToken,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)

	issued, err := h.sessions.Rotate(ctx, now, h.refreshTokenFromCookie(r))
	if err != nil {
		code := session.Code(err)
		h.metrics.refreshOutcome(code)
		switch code {
		case session.CodeMissingCredential:
			// Nothing to clear.
			writeError(w, http.StatusUnauthorized, code, "refresh credential required")
		case session.CodeReuseDetected:
			h.metrics.reuseDetected()
			h.auditRefreshReuse(ctx, reuseIdentity(h.sessions, h.refreshTokenFromCookie(r)), ip)
			if cause := storageCause(err); cause != nil {
				h.log.Error("auth.refresh.clear_all.fail", "err", cause)
			}
			h.clearSessionCookies(w)
			writeError(w, http.StatusForbidden, code, "refresh token reuse detected; sign in again")
		case session.CodeUnavailable:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, code, "please retry later")
		default:
			h.auditRefreshRejected(ctx, code, ip)
			h.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, code, "session not active")
		}
		return
	}

	h.metrics.refreshOutcome("ok")
	h.auditRefreshSuccess(ctx, issued.Identity.ID, ip)
	h.setSessionCookies(w, issued, now)
	writeJSON(w, http.StatusOK, RefreshResponse{
		OK:          true,
		AccessToken: issued.AccessToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)

	// Cookies are cleared on every path, including storage failure.
	h.clearSessionCookies(w)

	if tok := h.refreshTokenFromCookie(r); tok != "" {
		claims, removed, err := h.sessions.Revoke(ctx, tok)
		switch {
		case err == nil:
			h.auditLogout(ctx, claims.IdentityID, removed, ip)
		case session.Code(err) == session.CodeUnavailable:
			h.log.Error("auth.logout.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, session.CodeUnavailable, "please retry later")
			return
		default:
			h.log.Debug("auth.logout.ignored", "code", session.Code(err))
		}
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	ident, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{User: toUserResponse(ident)})
}
