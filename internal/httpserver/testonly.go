package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pchauvet/authgate/internal/service"
)

// TestHTTP holds the test/dev-only endpoints: first-user bootstrap and
// full database reset. Both refuse to run in production. Unlike the rest
// of the API these may echo internal error detail, they never ship.
type TestHTTP struct {
	Svc        *service.AuthService
	Production bool
}

func (h *TestHTTP) CreateFirstUser(c echo.Context) error {
	if h.Production {
		return echo.NewHTTPError(http.StatusForbidden, "test routes are disabled in production")
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.CreateFirstUser(c.Request().Context(), toCreateInput(req))
	if err != nil {
		if errors.Is(err, service.ErrUsersExist) {
			return echo.NewHTTPError(http.StatusBadRequest, "users already exist in the database")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("create first user: %v", err))
	}

	return c.JSON(http.StatusCreated, NewUserView(user))
}

func (h *TestHTTP) ResetDatabase(c echo.Context) error {
	if h.Production {
		return echo.NewHTTPError(http.StatusForbidden, "test routes are disabled in production")
	}

	if err := h.Svc.ResetAllUsers(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("reset database: %v", err))
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "database reset successfully"})
}
