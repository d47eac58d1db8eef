// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/trading"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.PortfolioDB == nil {
		return fmt.Errorf("container has no portfolio database")
	}

	container.PortfolioRepo = portfolio.NewRepository(container.PortfolioDB.Conn(), log)
	container.TradeRepo = trading.NewTradeRepository(container.PortfolioDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
