package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pchauvet/authgate/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	TestHandler *TestHTTP
	Auth        *middleware.BearerAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": "authgate backend"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	auth := e.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login)

	private := auth.Group("")
	private.Use(d.Auth.RequireUser)
	private.POST("/logout", d.AuthHandler.Logout)
	private.GET("/me", d.AuthHandler.Me)
	private.PUT("/password", d.AuthHandler.ChangePassword)

	admin := auth.Group("")
	admin.Use(d.Auth.RequireUser, d.Auth.RequireAdmin)
	admin.POST("/register", d.AuthHandler.Register)

	test := e.Group("/test")
	test.POST("/create-first-user", d.TestHandler.CreateFirstUser)
	test.POST("/reset-database", d.TestHandler.ResetDatabase)
}
