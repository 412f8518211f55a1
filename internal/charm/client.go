// ABOUTME: Charm KV client wrapper for the cloud-synced wrong-answer ledger
// ABOUTME: Authenticates with the user's SSH key and syncs after writes when enabled
package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

// LedgerKey holds the ordered list of wrong-answer records
const LedgerKey = "ledger:records"

// ErrNotFound is returned by GetJSON when the key has never been written
var ErrNotFound = errors.New("key not found")

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// Client wraps charm KV for ledger persistence
type Client struct {
	kv     *kv.KV
	config Config
	mu     sync.Mutex
}

// NewClient opens the named charm KV database, pulling remote data first when auto-sync is on
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host != "" {
		// kv.OpenWithDefaults reads the server from the environment
		if err := os.Setenv("CHARM_HOST", cfg.Host); err != nil {
			return nil, fmt.Errorf("failed to set CHARM_HOST: %w", err)
		}
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv %q: %w", cfg.DBName, err)
	}

	if cfg.AutoSync {
		_ = db.Sync()
	}
	return &Client{kv: db, config: cfg}, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv == nil {
		return nil
	}
	err := c.kv.Close()
	c.kv = nil
	return err
}

// SetJSON marshals value and stores it under key
func (c *Client) SetJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Set([]byte(key), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// GetJSON loads the value under key into dest
func (c *Client) GetJSON(key string, dest any) error {
	c.mu.Lock()
	data, err := c.kv.Get([]byte(key))
	c.mu.Unlock()

	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && data == nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return json.Unmarshal(data, dest)
}

// Sync pushes and pulls changes with the charm server
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Reset wipes the local copy; remote data is pulled again on the next sync
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// ID returns the charm user ID for the local SSH key
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// AuthorizedKeys lists the SSH keys linked to the account
func (c *Client) AuthorizedKeys() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.AuthorizedKeys()
}

// Host returns the configured charm server
func (c *Client) Host() string {
	return c.config.Host
}
