package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the application surface the HTTP API exposes.
type Service interface {
	GenerateWeeklyMenu(ctx context.Context, userID string, notifier planner.Notifier) (*planner.Menu, error)
	LatestMenu(ctx context.Context, userID string) (*planner.Menu, error)
	LatestShoppingList(ctx context.Context, userID string) (*shopping.ShoppingList, error)
	Preferences(ctx context.Context, userID string) (planner.Preferences, error)
	SavePreferences(ctx context.Context, userID string, prefs planner.Preferences) error
	Recipes(ctx context.Context, userID string) ([]recipe.Recipe, error)
	AddRecipe(ctx context.Context, userID string, rec recipe.Recipe) (*recipe.Recipe, error)
	ClipRecipe(ctx context.Context, userID, url string) (*recipe.Recipe, error)
	Health() metrics.SysHealth
}

// Server is the HTTP JSON API.
type Server struct {
	engine    *gin.Engine
	svc       Service
	auth      *Authenticator
	collector *metrics.Collector
	log       *zap.Logger
}

// NewServer builds the router.
func NewServer(svc Service, auth *Authenticator, collector *metrics.Collector, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	s := &Server{engine: gin.New(), svc: svc, auth: auth, collector: collector, log: log}
	s.engine.Use(gin.Recovery(), s.observe())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(s.collector.Handler()))

	api := s.engine.Group("/api", s.auth.Middleware())
	api.POST("/menus/generate", s.generateMenu)
	api.GET("/menus/latest", s.latestMenu)
	api.GET("/shopping-list/latest", s.latestShoppingList)
	api.GET("/preferences", s.getPreferences)
	api.PUT("/preferences", s.putPreferences)
	api.GET("/recipes", s.listRecipes)
	api.POST("/recipes", s.createRecipe)
	api.POST("/recipes/clip", s.clipRecipe)
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		elapsed := time.Since(start)
		s.collector.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), elapsed)
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", elapsed))
	}
}
