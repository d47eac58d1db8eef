package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio/{accountId}", h.HandleGetPortfolio)                     // Reconciled view
	r.Post("/portfolio/{accountId}/init", h.HandleInit)                       // Explicit bootstrap
	r.Put("/portfolio/{accountId}/risk-settings", h.HandleUpdateRiskSettings) // Replace risk policy
	r.Post("/portfolio/{accountId}/entry-plan", h.HandleEntryPlan)            // Turtle position sizing
	r.Get("/portfolio/{accountId}/risk", h.HandleGetRisk)                     // Exposure and limit status

	r.Put("/portfolio/{accountId}/positions/{symbol}", h.HandleUpsertPosition)    // Insert or update
	r.Delete("/portfolio/{accountId}/positions/{symbol}", h.HandleDeletePosition) // Remove
	r.Post("/portfolio/{accountId}/positions/{symbol}/fills", h.HandleAddFill)    // Pyramid / partial fill
}
