// ABOUTME: Ledger backend that stores the record list in Charm KV
// ABOUTME: The whole ordered list lives under a single key and syncs with the charm server
package storage

import (
	"context"
	"errors"

	"github.com/harper/study-standalone/internal/charm"
	"github.com/harper/study-standalone/internal/models"
)

// jsonStore is the subset of charm.Client the backend needs
type jsonStore interface {
	SetJSON(key string, value any) error
	GetJSON(key string, dest any) error
	Close() error
}

// CharmBackend persists the ledger to charm KV
type CharmBackend struct {
	store jsonStore
}

// NewCharmBackend wraps an open charm client
func NewCharmBackend(client *charm.Client) *CharmBackend {
	return &CharmBackend{store: client}
}

func (b *CharmBackend) Load(ctx context.Context) ([]models.WrongAnswerRecord, error) {
	var records []models.WrongAnswerRecord
	err := b.store.GetJSON(charm.LedgerKey, &records)
	if errors.Is(err, charm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (b *CharmBackend) Save(ctx context.Context, records []models.WrongAnswerRecord) error {
	if records == nil {
		records = []models.WrongAnswerRecord{}
	}
	return b.store.SetJSON(charm.LedgerKey, records)
}

func (b *CharmBackend) Close() error {
	return b.store.Close()
}
