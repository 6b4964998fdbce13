package security

import (
	"net"
	"net/http"
	"strings"
)

// SessionTokenFromRequest reads the session cookie, falling back to an
// Authorization bearer header for non-browser clients.
func SessionTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := GetCookie(r, SessionCookieName); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// ClientIP returns the host part of RemoteAddr. The router runs chi's RealIP
// middleware first, so proxies are already accounted for.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
