package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/deppfellow/stockroom/internal/errs"
	"github.com/deppfellow/stockroom/internal/server"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/labstack/echo/v4"
)

// LoginRequiredMessage is flashed to anonymous callers sent to the login page.
const LoginRequiredMessage = "Please sign in to continue."

// noStoreCacheControl keeps protected pages out of browser and proxy caches
// so they cannot be replayed with the back button after logout.
const noStoreCacheControl = "no-store, no-cache, must-revalidate, post-check=0, pre-check=0, max-age=0"

type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireSession only lets requests with an active session through.
//
// Anonymous browser requests are redirected (303) to the login path with a
// flash message; JSON callers get a 401 carrying a redirect action. The
// wrapped handler is never invoked for them and no session state changes.
//
// Authenticated responses always carry no-store cache headers.
func (auth *AuthMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		sess, err := auth.server.Sessions.Current(req.Context(), req)
		if err != nil {
			if !errors.Is(err, session.ErrNoActiveSession) {
				return err
			}

			GetLogger(c).Info().
				Str("function", "RequireSession").
				Dur("duration", time.Since(start)).
				Msg("anonymous request to protected route")

			return auth.deny(c)
		}

		setSession(c, sess)

		c.Response().Before(func() {
			h := c.Response().Header()
			h.Set(echo.HeaderCacheControl, noStoreCacheControl)
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		})

		return next(c)
	}
}

func (auth *AuthMiddleware) deny(c echo.Context) error {
	loginPath := auth.server.Config.Auth.LoginPath

	if wantsJSON(c.Request()) {
		return errs.NewRedirectRequiredError(LoginRequiredMessage, loginPath)
	}

	auth.server.Sessions.SetFlash(c.Response(), LoginRequiredMessage)
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		r.Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest"
}
