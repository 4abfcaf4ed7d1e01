package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pchauvet/authgate/internal/models"
	"github.com/pchauvet/authgate/internal/repo"
	"github.com/pchauvet/authgate/internal/service"
	"github.com/pchauvet/authgate/internal/tokens"
)

const userContextKey = "current_user"

type BearerAuth struct {
	Tokens *tokens.Issuer
	Repo   *repo.UserRepo
}

func NewBearerAuth(issuer *tokens.Issuer, userRepo *repo.UserRepo) *BearerAuth {
	return &BearerAuth{Tokens: issuer, Repo: userRepo}
}

// RequireUser resolves the caller from the Authorization header and
// stores the user record in the request context. Token failures and an
// unknown subject reject with 401; a deactivated account rejects with
// 400, mirroring the login check.
func (m *BearerAuth) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := m.Tokens.Verify(tokenStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := m.Repo.GetByID(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if !service.IsActive(user) {
			return echo.NewHTTPError(http.StatusBadRequest, "inactive user")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireAdmin rejects authenticated callers that lack the admin flag.
// Must run after RequireUser.
func (m *BearerAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		if !service.IsAdmin(user) {
			return echo.NewHTTPError(http.StatusForbidden, "operation not permitted")
		}
		return next(c)
	}
}

// CurrentUser returns the user resolved by RequireUser, or nil.
func CurrentUser(c echo.Context) *models.User {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
