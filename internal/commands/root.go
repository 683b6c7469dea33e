package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nuacha-app/nuacha/internal/buildinfo"
	"github.com/nuacha-app/nuacha/internal/categories"
	"github.com/nuacha-app/nuacha/internal/config"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/store"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	dir     string
	verbose bool
	logger  *zap.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:     "nuacha",
		Short:   "Household and small business expense tracking",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&a.dir, "dir", "d", ".", "data directory holding nuacha.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(a),
		newMigrateCommand(a),
		newImportCommand(a),
		newPayrollCommand(a),
		newBudgetCommand(a),
		newDuplicatesCommand(a),
	)

	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig reads nuacha.yaml from the data directory, falling back to
// household defaults when there is none, and overlays the environment.
func (a *app) loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(a.dir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(a.dir, config.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("no config file, using defaults", zap.String("dir", a.dir))
		cfg = config.Default("", "")
	} else if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// dsn resolves a relative SQLite path against the data directory.
func (a *app) dsn(cfg *config.Config) string {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(a.dir, dsn)
	}
	return dsn
}

// loadCategories reads the chart written by init, or the default chart
// for kind when the data directory has none.
func (a *app) loadCategories(kind model.FamilyKind) (*categories.Service, error) {
	cats, err := categories.Load(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("no category chart on disk, using defaults", zap.String("kind", string(kind)))
		return categories.NewService(categories.DefaultChart(kind)), nil
	}
	return cats, err
}
