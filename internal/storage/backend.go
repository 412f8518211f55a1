// ABOUTME: Selects the ledger backend named by configuration
// ABOUTME: memory for throwaway sessions, sqlite by default, charm for cloud sync
package storage

import (
	"fmt"

	"github.com/harper/study-standalone/internal/charm"
	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/storage/sqlite"
)

// OpenLedgerBackend opens the backend configured by cfg
func OpenLedgerBackend(cfg *config.Config) (LedgerBackend, error) {
	switch cfg.LedgerBackend {
	case config.LedgerMemory:
		return NewMemoryBackend(), nil
	case config.LedgerSQLite:
		store, err := sqlite.OpenLedgerStore(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		return store, nil
	case config.LedgerCharm:
		client, err := charm.NewClient(charm.Config{
			Host:     cfg.CharmHost,
			DBName:   cfg.CharmDBName,
			AutoSync: cfg.AutoSync,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open charm ledger: %w", err)
		}
		return NewCharmBackend(client), nil
	}
	return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
}
