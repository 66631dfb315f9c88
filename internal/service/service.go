// Package service implements the HTTP API of the connections service: the owner scoped
// connections endpoints, the AI suggestion endpoint, the health check and the pages.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
	"gitlab.com/dirk.krummacker/connections-service/internal/logger"
	"gitlab.com/dirk.krummacker/connections-service/internal/metrics"
	"gitlab.com/dirk.krummacker/connections-service/internal/store"
	"gitlab.com/dirk.krummacker/connections-service/internal/suggestion"
	"gitlab.com/dirk.krummacker/connections-service/internal/web"
)

// healthTimeout bounds the store ping of the health check.
const healthTimeout = 2 * time.Second

// Options are the collaborators of the service. Store, Verifier and Suggester are required.
type Options struct {
	Store     store.Store
	Verifier  identity.Verifier
	Suggester suggestion.Suggester
	Logger    zerolog.Logger

	// RequestLogging logs one line per request.
	RequestLogging bool

	// SignInURL is the identity provider's sign-in page linked from the home page.
	SignInURL string
}

// Service holds the collaborators shared by all handlers. It has no other state.
type Service struct {
	store          store.Store
	verifier       identity.Verifier
	suggester      suggestion.Suggester
	log            zerolog.Logger
	requestLogging bool
	pages          *web.Pages
}

// New creates the service.
func New(options Options) *Service {
	return &Service{
		store:          options.Store,
		verifier:       options.Verifier,
		suggester:      options.Suggester,
		log:            options.Logger,
		requestLogging: options.RequestLogging,
		pages:          web.NewPages(options.Verifier, options.SignInURL),
	}
}

// SetupHttpRouter initializes the router and registers all endpoints. The connections endpoints
// are behind the identity check; the suggestion endpoint, the health check and the metrics are
// not.
func (s *Service) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())
	if s.requestLogging {
		router.Use(logger.GinLogger(s.log))
	} else {
		s.log.Info().Msg("Turning off HTTP request logging.")
	}

	api := router.Group("/api")
	connections := api.Group("/connections", identity.RequireUser(s.verifier))
	connections.GET("", s.findConnections)
	connections.POST("", s.createConnection)
	connections.PUT("", s.updateConnection)
	connections.DELETE("", s.deleteConnection)
	api.POST("/ai-suggestion", s.getSuggestion)

	router.GET("/healthz", s.health)
	router.GET("/metrics", metrics.Handler())
	s.pages.Register(router)
	return router
}

// health responds with 200 if the store can be reached and with 503 otherwise.
//
// Example REST API call:
//
//	> curl http://localhost:8080/healthz
func (s *Service) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// internalError logs a store failure with its stack and responds with a generic 500.
func (s *Service) internalError(c *gin.Context, err error, msg string) {
	s.log.Error().Stack().Err(err).Str("user", identity.UserID(c)).Msg(msg)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
