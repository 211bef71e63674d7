package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/delivery/http/handler"
	"github.com/werent/review-platform/internal/delivery/http/middleware"
	"github.com/werent/review-platform/internal/delivery/http/response"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	productHandler *handler.ProductHandler
	reviewHandler  *handler.ReviewHandler
	identity       domain.IdentityStore
	logger         *logger.Logger
	cfg            *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	productHandler *handler.ProductHandler,
	reviewHandler *handler.ReviewHandler,
	identity domain.IdentityStore,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		productHandler: productHandler,
		reviewHandler:  reviewHandler,
		identity:       identity,
		logger:         log,
		cfg:            cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticated := middleware.Authenticate(rt.identity, rt.logger)

	r.Get("/health", rt.healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.With(authenticated).Post("/", rt.productHandler.Create)
			r.Get("/", rt.productHandler.List)
			r.Get("/{id}", rt.productHandler.GetByID)
			r.Get("/{id}/reviews", rt.reviewHandler.GetByProductID)
			r.Get("/{id}/reviews/summary", rt.productHandler.GetReviewSummary)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.With(authenticated).Post("/products/{productId}", rt.reviewHandler.Create)
			r.With(authenticated).Delete("/{id}", rt.reviewHandler.Delete)
			r.Get("/{id}/helpful", rt.reviewHandler.GetHelpfulCount)
			r.With(authenticated).Post("/{id}/helpful", rt.reviewHandler.ToggleHelpful)
			r.With(authenticated).Delete("/{id}/helpful", rt.reviewHandler.DeleteHelpful)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
