package services

import (
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	portssvc "github.com/pse-app/pse-sub001/internal/core/ports/services"
	"github.com/pse-app/pse-sub001/internal/platform/config"
	"github.com/pse-app/pse-sub001/internal/platform/metrics"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, ledgerMetrics *metrics.LedgerMetrics) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Ledger = NewLedgerService(
		repos.LedgerRepo,
		WithCurrency(cfg.Currency),
		WithMetrics(ledgerMetrics),
	)

	return container
}
