package authapi

import (
	"math"
	"net/http"
	"strings"
	"time"

	"jotter/cmd/internal/auth/session"
)

// setSessionCookies delivers both tokens as HttpOnly, SameSite=Strict cookies.
func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued, now time.Time) {
	h.setCookie(w, h.cfg.AccessCookieName, issued.AccessToken, issued.AccessExp, now)
	h.setCookie(w, h.cfg.RefreshCookieName, issued.RefreshToken, issued.RefreshExp, now)
}

// clearSessionCookies replaces both cookies with immediately expired values.
func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
}

func (h *Handler) refreshTokenFromCookie(r *http.Request) string {
	return cookieValue(r, h.cfg.RefreshCookieName)
}

func (h *Handler) accessTokenFromCookie(r *http.Request) string {
	return cookieValue(r, h.cfg.AccessCookieName)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp, now time.Time) {
	// exp is whole seconds; round up so a sub-second now keeps the full TTL.
	maxAge := int(math.Ceil(exp.Sub(now).Seconds()))
	if maxAge <= 0 {
		h.expireCookie(w, name)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
