package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/portfolio/{accountId}/positions/{symbol}/close", h.HandleClosePosition) // Exit
	r.Get("/portfolio/{accountId}/trades", h.HandleGetTrades)                        // Closed-trade journal
	r.Get("/portfolio/{accountId}/trades/summary", h.HandleGetSummary)               // Distribution report
}
