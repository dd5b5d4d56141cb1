package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/groupchat/internal/chat"
	"github.com/smallbiznis/groupchat/internal/config"
	"github.com/smallbiznis/groupchat/internal/observability"
	obsmiddleware "github.com/smallbiznis/groupchat/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/groupchat/internal/observability/metrics"
	obstracing "github.com/smallbiznis/groupchat/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	Log         *zap.Logger
	ObsCfg      observability.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	if p.ObsCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(p.Log, p.ObsCfg, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	chat   *chat.Facade
}

type ServerParams struct {
	fx.In

	Gin  *gin.Engine
	Chat *chat.Facade
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		chat:   p.Chat,
	}
	svc.registerAPIRoutes()
	svc.registerFallback()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", PrincipalFromHeaders())

	// -------- Groups --------
	api.POST("/groups", s.CreateGroup)
	api.GET("/groups", s.ListGroups)
	api.GET("/groups/discover", s.DiscoverGroups)
	api.GET("/groups/:id", s.GetGroup)
	api.PATCH("/groups/:id", s.UpdateGroup)
	api.POST("/groups/:id/deactivate", s.DeactivateGroup)
	api.GET("/groups/:id/audit", s.ListAuditLogs)

	// -------- Membership --------
	api.POST("/groups/:id/join", s.JoinGroup)
	api.POST("/groups/:id/leave", s.LeaveGroup)
	api.GET("/groups/:id/members", s.ListMembers)
	api.PUT("/groups/:id/members/:userId/role", s.SetMemberRole)

	// -------- Messages --------
	api.POST("/groups/:id/messages", s.PostMessage)
	api.GET("/groups/:id/messages", s.ListMessages)
	api.PATCH("/groups/:id/messages/:seq", s.EditMessage)
	api.DELETE("/groups/:id/messages/:seq", s.DeleteMessage)
	api.POST("/groups/:id/messages/:seq/reports", s.ReportMessage)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, errRouteNotFound)
	})
}
