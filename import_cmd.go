package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"listing-importer/config"
	"listing-importer/metrics"
	"listing-importer/services"
	"listing-importer/storage"
	"listing-importer/utils"
)

var importCmd = &cobra.Command{
	Use:   "import <filepath> [<login> <password> <host> <dbname> <salt>]",
	Short: "Import listings and owners from a TSV file",
	Long: `Imports every line of a tab-separated file as a listing. Owners are matched by
email and created with a placeholder password when missing. Connection
settings and the salt can be given as arguments or through configuration
(POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_DB, IMPORT_SALT).`,
	Args: importArgs,
	RunE: runImport,
}

var (
	importDryRun  bool
	importRejects string
	importMaxRPS  float64
)

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and resolve records against an in-memory store instead of PostgreSQL")
	importCmd.Flags().StringVar(&importRejects, "rejects", "", "Write lines that fail to import to this TSV file")
	importCmd.Flags().Float64Var(&importMaxRPS, "max-rps", 0, "Limit store writes to this many records per second (0 = unlimited)")

	rootCmd.AddCommand(importCmd)
}

func importArgs(_ *cobra.Command, args []string) error {
	if len(args) != 1 && len(args) != 6 {
		return fmt.Errorf("accepts 1 or 6 arg(s), received %d", len(args))
	}
	return nil
}

// applyImportArgs copies positional connection settings over the loaded
// configuration.
func applyImportArgs(cfg *config.Config, args []string) {
	if len(args) != 6 {
		return
	}
	cfg.Postgres.User = args[1]
	cfg.Postgres.Password = args[2]
	cfg.Postgres.Host = args[3]
	cfg.Postgres.DB = args[4]
	cfg.Import.Salt = args[5]
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyImportArgs(cfg, args)

	if cmd.Flags().Changed("rejects") {
		cfg.Import.RejectsPath = importRejects
	}
	if cmd.Flags().Changed("max-rps") {
		cfg.Import.MaxRecordsPerSecond = importMaxRPS
	}
	if importDryRun {
		// The memory store ignores the connection target.
		if cfg.Postgres.User == "" {
			cfg.Postgres.User = "dry-run"
		}
		if cfg.Postgres.DB == "" {
			cfg.Postgres.DB = "dry-run"
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return executeImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0], importDryRun)
}

// executeImport wires one import run. An unreadable input is reported on
// stderr and is not an error exit; every other fatal error is returned.
func executeImport(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, path string, dryRun bool) error {
	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var store storage.Store = storage.NewPostgresStore(cfg.Postgres.ConnectRetries, cfg.Postgres.RetryDelay, logger)
	if dryRun {
		logger.Info("Dry run: records are kept in memory and discarded")
		store = storage.NewMemoryStore()
	}

	opts := services.Options{
		Throttle:      utils.NewThrottle(cfg.Import.MaxRecordsPerSecond),
		Metrics:       metrics.NewImport(),
		ProgressEvery: cfg.Import.ProgressEvery,
	}
	if cfg.Import.RejectsPath != "" {
		rejects, err := storage.NewRejectWriter(cfg.Import.RejectsPath)
		if err != nil {
			return err
		}
		defer rejects.Close()
		opts.Rejects = rejects
	}

	resolver := services.NewOwnerResolver(
		utils.NewCredentialHasher(cfg.Import.BcryptCost), cfg.Import.PlaceholderPassword, logger)
	reporter := services.NewReporter(stdout, logger, opts.Metrics, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	importer := services.NewImporter(store, resolver, reporter, logger, opts)

	_, err = importer.Execute(ctx, cfg.RunConfig(path))

	var inputErr *services.InputError
	if errors.As(err, &inputErr) {
		fmt.Fprintf(stderr, "Can't import data from file: %s\n", path)
		fmt.Fprintf(stderr, "%v\n", inputErr)
		return nil
	}
	return err
}
