// Package httpapi exposes the web installer over HTTP: the human-facing
// task/upload/store endpoints and the firmware-facing provisioning
// endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/market"
	"github.com/openpmca/webinstaller/internal/server/config"
	"github.com/openpmca/webinstaller/internal/server/packages"
	"github.com/openpmca/webinstaller/internal/server/provision"
	"github.com/openpmca/webinstaller/internal/server/tasks"
)

type Server struct {
	config      *config.Config
	logger      logging.Logger
	tasks       *tasks.Service
	storage     packages.Storage
	market      *market.Client
	coordinator *provision.Coordinator
	httpServer  *http.Server
}

func NewServer(cfg *config.Config, l logging.Logger, ts *tasks.Service, st packages.Storage, mc *market.Client, pc *provision.Coordinator) *Server {
	s := &Server{
		config:      cfg,
		logger:      l.With("module", "http_server"),
		tasks:       ts,
		storage:     st,
		market:      mc,
		coordinator: pc,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.EndpointAddrHTTP,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Human-facing task flow.
	r.GET("/ajax/task/start", s.startTask)
	r.GET("/ajax/task/start/:handle", s.startTask)
	r.GET("/ajax/task/view/:taskId", s.viewTask)
	r.POST("/packages", s.uploadPackage)

	// Firmware-facing provisioning flow.
	r.GET("/provisioning/descriptor/:taskId", s.descriptor)
	r.POST("/provisioning/portal", s.portalCallback)
	r.GET("/provisioning/container/:handle", s.container)

	// Vendor store flow.
	r.POST("/store/login", s.storeLogin)
	r.GET("/store/:account/devices", s.storeDevices)
	r.GET("/store/:account/:device/apps", s.storeApps)
	r.GET("/store/:account/:device/:app", s.storeDownload)

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {

	shutdownCh := make(chan error, 1)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdownCh <- s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.EndpointAddrHTTP)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-shutdownCh
}
