package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
)

const SessionCookieName = "support_space_session"

type CookieManager struct {
	secure bool
}

func NewCookieManager(secure bool) *CookieManager {
	return &CookieManager{secure: secure}
}

func (m *CookieManager) SetSession(w http.ResponseWriter, token string) error {
	if w == nil {
		return errors.New("nil response writer")
	}
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if err := c.Valid(); err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

func (m *CookieManager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// HashSessionToken derives the storage key for a session token so raw
// tokens never sit in the database.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
