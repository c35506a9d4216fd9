package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/mit-kavli-institute/pdoflow-go/config"
	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

var configPath string

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:           "pdoflow",
		Short:         "pdoflow: a Postgres-coordinated distributed job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: per-user config dir)")

	root.AddCommand(buildPoolCommand())
	root.AddCommand(buildPostingStatusCommand())
	root.AddCommand(buildListPostingsCommand())
	root.AddCommand(buildSetPostingStatusCommand())
	root.AddCommand(buildPriorityStatsCommand())
	root.AddCommand(buildExecuteJobCommand())

	return root
}

// openDB loads configuration and opens a connected, schema-initialized
// *bun.DB, shared by every subcommand that touches storage.
func openDB(ctx context.Context) (*bun.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := cfg.Database.Open()
	if err != nil {
		return nil, err
	}
	if err := pdoflowsql.InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
