package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"wallet-ledger/config"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "operator tool for the wallet ledger database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if cfg.Database.InMemory() {
				return fmt.Errorf("ledgerctl needs the postgres driver, got %q", cfg.Database.Driver)
			}
			c.cfg = cfg
			c.log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file path")

	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.sweepCmd())
	return root
}

func (c *cli) connect(cmd *cobra.Command) (*pgxpool.Pool, error) {
	return pgStorage.NewPool(cmd.Context(), c.cfg.Database, c.log)
}

func (c *cli) migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pgStorage.MigrateUp(pool, c.log)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}

			pool, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pgStorage.MigrateDown(pool, steps, c.log)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			version, dirty, err := pgStorage.SchemaVersion(pool)
			if err != nil {
				return err
			}
			return jsonPrint(cmd, map[string]any{"version": version, "dirty": dirty})
		},
	})

	return migrateCmd
}

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "delete completed idempotency records past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Idempotency.Retention <= 0 {
				return fmt.Errorf("idempotency.retention is not set; nothing to sweep")
			}

			pool, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			sweeper := service.NewIdempotencySweeper(
				pgStorage.NewIdempotencyRepo(pool),
				c.cfg.Idempotency.Retention,
				c.cfg.Idempotency.SweepInterval,
				c.cfg.Idempotency.SweepBatch,
				nil,
				c.log,
			)
			deleted, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return jsonPrint(cmd, map[string]any{"deleted": deleted})
		},
	}
}

func jsonPrint(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
