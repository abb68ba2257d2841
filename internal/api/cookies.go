package api

import (
	"net/http"
	"time"

	"lms/internal/config"
)

// sessionCookies issues and clears the session cookie with the configured
// attributes.
type sessionCookies struct {
	cfg config.CookieConfig
}

func (c sessionCookies) set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.cfg.MaxAge.Seconds()),
		Expires:  expiresAt,
		Secure:   c.cfg.IsSecure(),
		HttpOnly: c.cfg.IsHTTPOnly(),
		SameSite: c.cfg.SameSiteMode(),
	})
}

func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.cfg.IsSecure(),
		HttpOnly: c.cfg.IsHTTPOnly(),
		SameSite: c.cfg.SameSiteMode(),
	})
}
