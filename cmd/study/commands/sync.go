// ABOUTME: Sync commands for the Charm-backed wrong-answer ledger
// ABOUTME: Provides status, now, wipe, and keys when ledger_backend is charm
package commands

import (
	"errors"
	"fmt"

	"github.com/harper/study-standalone/internal/charm"
	"github.com/harper/study-standalone/internal/config"
	"github.com/spf13/cobra"
)

// syncClient is the part of charm.Client the sync commands drive
type syncClient interface {
	ID() (string, error)
	Host() string
	Sync() error
	Reset() error
	AuthorizedKeys() (string, error)
	Close() error
}

var errNotCharm = errors.New("sync needs ledger_backend: charm (set STUDY_LEDGER_BACKEND=charm)")

// openSyncClient connects to the charm KV database holding the ledger
var openSyncClient = func() (syncClient, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, err
	}
	if cfg.LedgerBackend != config.LedgerCharm {
		return nil, errNotCharm
	}
	// sync happens explicitly in these commands
	client, err := charm.NewClient(charm.Config{
		Host:   cfg.CharmHost,
		DBName: cfg.CharmDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}
	return client, nil
}

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud sync of the wrong-answer ledger",
		Long: `Manage synchronization of the wrong-answer ledger with Charm cloud.

With ledger_backend set to charm, wrong answers are stored in Charm KV
and sync across devices linked to the same Charm account via SSH keys.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openSyncClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			out := cmd.OutOrStdout()
			id, err := client.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				fmt.Fprintln(out, "Run 'study sync keys' to check your SSH keys")
				return nil
			}

			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			fmt.Fprintf(out, "Host: %s\n", client.Host())
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openSyncClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			fmt.Fprintln(cmd.ErrOrStderr(), "Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe the local copy of the ledger",
		Long: `Delete the locally cached Charm data for the ledger.

Cloud data remains intact and is pulled again on the next sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to wipe local data without --confirm")
			}

			client, err := openSyncClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local data wiped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openSyncClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			keys, err := client.AuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if keys == "" {
				fmt.Fprintln(out, "No authorized keys found")
				return nil
			}
			fmt.Fprintln(out, "Authorized SSH keys:")
			fmt.Fprintln(out, keys)
			return nil
		},
	}
}
