package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"greenbridge/services"
	"greenbridge/utils"
)

// Server exposes the marketplace over JSON HTTP.
type Server struct {
	echo   *echo.Echo
	market *services.Marketplace
	logger *utils.Logger
}

// NewServer builds the echo instance and registers every route.
func NewServer(market *services.Marketplace, logger *utils.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{echo: e, market: market, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")

	api.POST("/predict", s.predictPrice)
	api.GET("/market", s.marketSnapshot)
	api.GET("/rice-types/:name", s.riceInfo)
	api.POST("/matches", s.findMatches)
	api.POST("/chat", s.chat)

	api.POST("/parties", s.registerParty)
	api.GET("/parties/:id", s.getParty)
	api.GET("/parties/:id/chats", s.recentChats)
	api.GET("/parties/:id/contact", s.sellerContact)

	api.GET("/listings", s.listListings)
	api.POST("/listings", s.createListing)
	api.GET("/listings/:id", s.getListing)
	api.PUT("/listings/:id", s.updateListing)
	api.PATCH("/listings/:id/availability", s.setAvailability)
	api.DELETE("/listings/:id", s.deleteListing)
}

// ServeHTTP lets the server be mounted or exercised with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("[http] listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(logger *utils.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			logger.Debug("[http] %s %s -> %d (%v)", req.Method, req.RequestURI, res.Status, time.Since(start).Round(time.Microsecond))
			return nil
		}
	}
}
