package server

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"duunihaku/services/search/internal/config"
	"duunihaku/services/search/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Searcher produces one page of merged results.
type Searcher interface {
	Search(ctx context.Context, query models.Query) (*models.ListingPage, error)
}

type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	searcher   Searcher
	index      *template.Template
	config     *config.Config
	logger     *zap.Logger
}

type requestIDKey struct{}

// RequestID returns the X-Request-ID the request carried, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func NewServer(searcher Searcher, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	index, err := parseIndexTemplate()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   router,
		searcher: searcher,
		index:    index,
		config:   cfg,
		logger:   logger,
	}

	router.Use(gin.Recovery(), s.requestContext(), s.accessLog())
	s.setUpRoutes()

	return s, nil
}

func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Request-ID"); id != "" {
			ctx := context.WithValue(c.Request.Context(), requestIDKey{}, id)
			c.Request = c.Request.WithContext(ctx)
			c.Header("X-Request-ID", id)
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", RequestID(c.Request.Context())))
	}
}

func (s *Server) setUpRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/load_more", s.handleLoadMore)
	s.router.GET("/healthz", s.handleHealth)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in the background once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server shutdown completed")
	return nil
}
