package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/handlers"
	wsHandler "github.com/xpanvictor/interm/internal/handlers/websocket"
	"github.com/xpanvictor/interm/internal/observability"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/registry"
)

type Dependencies struct {
	Service  handlers.SessionService
	Registry registry.Registry
	UserID   uuid.UUID
	Logger   *Logger.Logger
}

func NewServerDependencies(
	svc handlers.SessionService,
	reg registry.Registry,
	userID uuid.UUID,
	logger *Logger.Logger,
) Dependencies {
	return Dependencies{
		Service:  svc,
		Registry: reg,
		UserID:   userID,
		Logger:   logger,
	}
}

// InitializeRoutes mounts the REST api under /api/v1 next to the event
// websocket and the operational endpoints.
func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api/v1")
	handlers.NewSessionHandler(dep.Service, dep.Logger).RegisterRoutes(api)

	wsHandler.NewWebSocketHandler(dep.Logger, dep.Registry, dep.UserID, dep.Service).RegisterRoutes(r)
}

func NewRouter(debug bool, dep Dependencies) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if debug {
		r.Use(gin.Logger())
	}
	InitializeRoutes(r, dep)
	return r
}

// Server is the http listener with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *Logger.Logger
}

func New(addr string, handler http.Handler, logger *Logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background. Listener failures go to errc.
func (s *Server) Start(errc chan<- error) {
	go func() {
		s.logger.Infof("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
}

// Shutdown waits up to 5 seconds for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
