// Package server exposes the adjudication engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	adjdomain "github.com/vitalis-health/vitalis/internal/adjudication/domain"
	"github.com/vitalis-health/vitalis/internal/batch"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	"github.com/vitalis-health/vitalis/internal/config"
	"github.com/vitalis-health/vitalis/internal/observability"
	obsmiddleware "github.com/vitalis-health/vitalis/internal/observability/logger"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine       *gin.Engine
	adjudication adjdomain.Service
	coordinator  *batch.Coordinator
	claims       claimdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Adjudication adjdomain.Service
	Coordinator  *batch.Coordinator
	Claims       claimdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		adjudication: p.Adjudication,
		coordinator:  p.Coordinator,
		claims:       p.Claims,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	{
		claims := v1.Group("/claims")
		claims.POST("/:id/adjudicate", s.AdjudicateClaim)
		claims.POST("/adjudicate-batch", s.AdjudicateBatch)
		claims.GET("/:id/adjudication", s.GetAdjudication)
	}
}
