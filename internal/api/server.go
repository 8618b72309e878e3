package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/connector"
	"github.com/cfclient-project/cfclient/internal/db"
	"github.com/cfclient-project/cfclient/internal/health"
	intnet "github.com/cfclient-project/cfclient/internal/network"
	"github.com/cfclient-project/cfclient/internal/scheduler"
)

// Server is the debug REST API of the client.
type Server struct {
	cfg  *config.Config
	conn *connector.ServerConnector

	// Optional dependencies; nil when the feature is disabled.
	capture *db.CaptureStore
	roster  *db.RosterStore
	health  *health.Manager
	sched   *scheduler.Scheduler

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, conn *connector.ServerConnector) *Server {
	if cfg.GetApplicationData().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:  cfg,
		conn: conn,
	}
}

// SetDependencies injects the optional components (called after all
// components are initialized).
func (s *Server) SetDependencies(capture *db.CaptureStore, roster *db.RosterStore, hm *health.Manager, sched *scheduler.Scheduler) {
	s.capture = capture
	s.roster = roster
	s.health = hm
	s.sched = sched
}

// Handler returns the router, building it on first use.
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.router = s.buildRouter()
	}
	return s.router
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	apiCfg := s.cfg.GetApplicationData().API
	addr := net.JoinHostPort(apiCfg.Listen, strconv.Itoa(apiCfg.Port))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// SO_REUSEADDR for immediate rebinding after restart
	ln, err := intnet.Listen(ctx, addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info().Str("addr", addr).Msg("debug API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	apiCfg := s.cfg.GetApplicationData().API
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := apiCfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	public := router.Group("/api")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/system", s.handleGetSystem)
	}

	monitor := router.Group("/api/monitor")
	{
		monitor.GET("/state", s.handleGetState)
		monitor.GET("/negotiation", s.handleGetNegotiation)
		monitor.GET("/stats", s.handleGetStats)
		monitor.GET("/items", s.handleGetItems)
		monitor.GET("/spells", s.handleGetSpells)
		monitor.GET("/quests", s.handleGetQuests)
		monitor.GET("/knowledge", s.handleGetKnowledge)
		monitor.GET("/characters", s.handleGetAccounts)
		monitor.GET("/characters/:account", s.handleGetCharacters)
		monitor.GET("/packets", s.handleGetPackets)
		monitor.GET("/health", s.handleGetHealth)
		monitor.GET("/snapshot", s.handleGetSnapshot)
	}

	control := router.Group("/api/control")
	control.Use(RequireSendEnabled(s.cfg))
	{
		control.POST("/command", s.handleSendCommand)
		control.POST("/reply", s.handleSendReply)
		control.POST("/mapsize", s.handleSetMapSize)
		control.POST("/look_objects", s.handleSetLookObjects)
		control.POST("/askface", s.handleFlushAskFaces)
	}

	configure := router.Group("/api/config")
	{
		configure.GET("", s.handleGetConfig)
		configure.POST("/client", s.handleSetClientField)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cfclient debug API is running"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
