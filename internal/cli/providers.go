package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/config"
)

// BuildRegistry creates a billing provider registry from configuration.
// Disabled providers are skipped; the "fake" provider needs no remote
// credentials and is backed by an in-memory store.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*billing.Registry, error) {
	registry := billing.NewRegistry(logger)

	for name, providerCfg := range cfg.Billing.Providers {
		if !providerCfg.Enabled {
			continue
		}

		if name == "fake" {
			if err := registry.Register(billing.NewFake()); err != nil {
				return nil, err
			}
			continue
		}

		apiKey := cfg.GetAPIKey(providerCfg.APIKey, "STRIPE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("provider %q is enabled but has no API key", name)
		}

		client := billing.NewClient(name, providerCfg.DisplayName, billing.ClientConfig{
			BaseURL: providerCfg.BaseURL,
			APIKey:  apiKey,
			Timeout: time.Duration(providerCfg.TimeoutSeconds) * time.Second,
		}, logger)

		if err := registry.Register(client); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, fmt.Errorf("no billing providers enabled")
	}

	return registry, nil
}
