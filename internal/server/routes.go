package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/app"
	"github.com/nfrund/campus/internal/filestore"
	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/handlers"
	"github.com/nfrund/campus/internal/middleware"
	"github.com/nfrund/campus/internal/pubsub"
)

// Per-client limits on the write endpoints.
const (
	sendRatePerSecond   = 5
	sendBurst           = 10
	submitRatePerSecond = 0.2
	submitBurst         = 3
	uploadRatePerSecond = 1
	uploadBurst         = 5
)

// RegisterRoutes sets up the core routes, then registers and boots every
// module under /api/<module name>.
func (s *Server) RegisterRoutes(ctx context.Context) error {
	gw, err := do.Invoke[*gateway.Gateway](s.injector)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	bus, err := do.Invoke[*pubsub.WatermillBridge](s.injector)
	if err != nil {
		return fmt.Errorf("create message bus: %w", err)
	}
	files, err := do.Invoke[*filestore.Service](s.injector)
	if err != nil {
		return fmt.Errorf("create file service: %w", err)
	}
	stores := do.MustInvoke[Stores](s.injector)

	s.E.GET("/health", s.health)
	s.E.GET("/ws", gw.Handler())

	fileHandler := handlers.NewFileHandler(files)
	fileGroup := s.E.Group("/api/file")
	fileGroup.POST("/upload-file", fileHandler.UploadFile, middleware.RateLimiter(uploadRatePerSecond, uploadBurst))
	fileGroup.GET("/:id", fileHandler.DownloadFile)

	s.modules = app.NewModules(app.Dependencies{
		Subscriber:    bus,
		Gateway:       gw,
		Profiles:      stores.Profiles,
		Messages:      stores.Messages,
		Communities:   stores.Communities,
		Exams:         stores.Exams,
		Results:       stores.Results,
		HistoryLimit:  s.cfg.GetHistoryLimit(),
		SendLimiter:   middleware.RateLimiter(sendRatePerSecond, sendBurst),
		SubmitLimiter: middleware.RateLimiter(submitRatePerSecond, submitBurst),
	})

	for _, m := range s.modules {
		slog.Info("Registering module", "module", m.Name())
		if err := m.Register(s.injector); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	for _, m := range s.modules {
		if err := m.Boot(ctx, s.E.Group("/api/"+m.Name()), s.injector); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
	}
	return nil
}

type healthResponse struct {
	Status         string            `json:"status"`
	ConnectedUsers int               `json:"connectedUsers"`
	Checks         map[string]string `json:"checks,omitempty"`
}

// health reports 503 when any service health check fails, together with the
// number of users holding a live socket.
func (s *Server) health(c echo.Context) error {
	connected := 0
	if gw, err := do.Invoke[*gateway.Gateway](s.injector); err == nil {
		connected = gw.Registry().Len()
	}

	failed := map[string]string{}
	for name, err := range s.injector.HealthCheckWithContext(c.Request().Context()) {
		if err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable", ConnectedUsers: connected, Checks: failed})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", ConnectedUsers: connected})
}
