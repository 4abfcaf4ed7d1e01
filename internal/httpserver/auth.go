package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pchauvet/authgate/internal/logging"
	"github.com/pchauvet/authgate/internal/middleware"
	"github.com/pchauvet/authgate/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	username := c.FormValue("username")
	password := c.FormValue("password")

	res, err := h.Svc.Login(ctx, username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("login failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		case errors.Is(err, service.ErrInactiveUser):
			l.Warn("login failed", "status", 400, "reason", "inactive user")
			return echo.NewHTTPError(http.StatusBadRequest, "inactive user")
		default:
			l.Error("login failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		User:        NewUserView(res.User),
	})
}

// Logout exists for API symmetry: tokens are stateless, so the server
// has nothing to invalidate and the client simply discards its copy.
func (h *AuthHTTP) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, middleware.CurrentUser(c), toCreateInput(req))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "operation not permitted")
		case errors.Is(err, service.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "username already registered")
		case errors.Is(err, service.ErrEmailTaken):
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
		default:
			l.Error("register failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusCreated, NewUserView(user))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, NewUserView(middleware.CurrentUser(c)))
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_change_password")

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if _, err := h.Svc.ChangePassword(ctx, middleware.CurrentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrBadCredential) {
			return echo.NewHTTPError(http.StatusBadRequest, "current password is incorrect")
		}
		l.Error("change password failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password changed successfully"})
}

func toCreateInput(req createUserRequest) service.CreateUserInput {
	in := service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil {
		in.IsAdmin = *req.IsAdmin
	}
	return in
}
