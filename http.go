package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// Envelope is the JSON body of successful responses
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RefreshCookie writes and clears the httpOnly refresh token cookie. The
// cookie is scoped to the auth routes so it never reaches other handlers.
type RefreshCookie struct {
	Name     string
	Path     string
	Secure   bool
	SameSite string
}

// NewRefreshCookie builds the cookie settings from cfg
func NewRefreshCookie(cfg Config) RefreshCookie {
	return RefreshCookie{
		Name:     cfg.GetRefreshCookieName(),
		Path:     cfg.GetRefreshCookiePath(),
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

// Set stores token. The cookie only carries an expiry when persistent is
// true, otherwise the browser drops it at the end of the session.
func (r RefreshCookie) Set(c router.Context, token string, expiresAt time.Time, persistent bool) {
	cookie := &router.Cookie{
		Name:     r.Name,
		Value:    token,
		Path:     r.Path,
		HTTPOnly: true,
		Secure:   r.Secure,
		SameSite: r.SameSite,
	}
	if persistent {
		cookie.Expires = expiresAt
	}
	c.Cookie(cookie)
}

// Clear expires the cookie on the client
func (r RefreshCookie) Clear(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     r.Name,
		Value:    "",
		Path:     r.Path,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   r.Secure,
		SameSite: r.SameSite,
	})
}

// Read returns the cookie value, if any
func (r RefreshCookie) Read(c router.Context) string {
	return c.Cookies(r.Name)
}
