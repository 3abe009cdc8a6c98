package api

import (
	"net/http"
	"time"

	"github.com/MrEthical07/sellerhub"
)

func (s *Server) setSessionCookies(w http.ResponseWriter, pair *sellerhub.TokenPair) {
	cfg, accessTTL, refreshTTL := s.engine.CookieConfig()
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessName, pair.AccessToken, accessTTL))
	http.SetCookie(w, sessionCookie(cfg, cfg.RefreshName, pair.RefreshToken, refreshTTL))
}

// clearSessionCookies expires both cookies in the browser.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	cfg, _, _ := s.engine.CookieConfig()
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessName, "", 0))
	http.SetCookie(w, sessionCookie(cfg, cfg.RefreshName, "", 0))
}

func (s *Server) refreshCookie(r *http.Request) string {
	cfg, _, _ := s.engine.CookieConfig()
	c, err := r.Cookie(cfg.RefreshName)
	if err != nil {
		return ""
	}
	return c.Value
}

// sessionCookie builds an HttpOnly cookie. A zero ttl produces a deleting cookie.
func sessionCookie(cfg sellerhub.CookieConfig, name, value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if ttl <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
}
