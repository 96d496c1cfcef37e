package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/config"
	"github.com/mamadbah2/tracklog/internal/domain/models"
	exportsvc "github.com/mamadbah2/tracklog/internal/service/export"
	"github.com/mamadbah2/tracklog/internal/service/tracking"
	"github.com/mamadbah2/tracklog/internal/store"
	"github.com/mamadbah2/tracklog/pkg/logger"
)

var (
	envFile string
	verbose bool
	filter  models.Predicates
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracklogctl",
	Short: "Inspect and maintain the inventory tracking log",
	Long: `tracklogctl reads the same store as the tracking log server.
Changes made here are picked up by running servers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load configuration from this .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// addFilterFlags registers the tracking log predicates on cmd.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "Filter by tag number")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&filter.PartNumber, "part", "", "Filter by part number")
	cmd.Flags().StringVar(&filter.Description, "description", "", "Filter by description")
}

// session is the loaded tracking log behind a command.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	ctrl     *tracking.Controller
	exporter *exportsvc.Service
	close    func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.NewConsole(level)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	st, backend, err := store.Open(ctx, cfg, logger.Named(log, "store"))
	if err != nil {
		return nil, err
	}

	ctrl := tracking.NewController(st, tracking.NewRenderer(catalog, loc), logger.Named(log, "svc.tracking"))
	if err := ctrl.Reload(ctx); err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	return &session{
		cfg:      cfg,
		logger:   log,
		store:    st,
		ctrl:     ctrl,
		exporter: exportsvc.NewService(st, logger.Named(log, "svc.export")),
		close: func() {
			_ = backend.Close(context.Background())
			_ = log.Sync()
		},
	}, nil
}
