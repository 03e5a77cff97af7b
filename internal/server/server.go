package server

import (
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/config"
	"github.com/nfrund/campus/internal/handlers"
	appmiddleware "github.com/nfrund/campus/internal/middleware"
	"github.com/nfrund/campus/internal/module"
)

// Server holds the HTTP server and the injector behind it.
type Server struct {
	E        *echo.Echo
	cfg      config.Provider
	injector *do.RootScope
	modules  []module.Module
}

// New creates the echo instance with the global middleware stack.
func New(injector *do.RootScope) *Server {
	cfg := do.MustInvoke[config.Provider](injector)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(echomw.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.GetAllowedOrigin()},
		AllowCredentials: true,
	}))

	return &Server{E: e, cfg: cfg, injector: injector}
}

// Injector returns the root injector, useful for testing.
func (s *Server) Injector() *do.RootScope {
	return s.injector
}

// setupErrorHandling renders domain errors as JSON and logs unexpected errors
// together with the stack that produced them.
func setupErrorHandling(e *echo.Echo) {
	domainHandler := handlers.NewHTTPErrorHandler(e)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) && !handlers.IsDomainError(err) {
			slog.Error("Internal Server Error (Unhandled)",
				"error", err,
				"method", c.Request().Method,
				"path", c.Path(),
				"stack_trace", string(debug.Stack()),
			)
		}
		domainHandler(err, c)
	}
}
