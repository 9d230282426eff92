package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"edumatch/internal/api"
	"edumatch/internal/types"
)

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Environment string `json:"environment"`
}

// NewRouter assembles the producer API: middleware stack, health endpoint,
// and the notification publish endpoint.
func NewRouter(notifications *NotificationHandler, service, environment string, logger types.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(api.Recoverer(logger))
	r.Use(api.RequestID)
	r.Use(api.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		api.JSON(w, req, http.StatusOK, api.APIResponse{
			Data: HealthResponse{
				Status:      "ok",
				Service:     service,
				Environment: environment,
			},
		})
	})

	r.Route("/v1/notifications", notifications.RegisterRoutes)

	return r
}
