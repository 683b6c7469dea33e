package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nuacha-app/nuacha/internal/activity"
	"github.com/nuacha-app/nuacha/internal/categorize"
	"github.com/nuacha-app/nuacha/internal/config"
	"github.com/nuacha-app/nuacha/internal/expenses"
	"github.com/nuacha-app/nuacha/internal/gitops"
	"github.com/nuacha-app/nuacha/internal/importer"
	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/money"
	"github.com/nuacha-app/nuacha/internal/store"
)

type importOptions struct {
	format   string
	familyID string
}

func newImportCommand(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Parse bank CSV exports, optionally recording them as expenses",
		Long: `Parse a bank CSV export and list its transactions.

With no file, every CSV in <dir>/import/ is parsed and then moved to
import/processed/. With --family, money-out rows are recorded as expenses
for that family, skipping likely duplicates.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return a.importFile(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts, false)
			}

			files, err := importer.Scan(a.dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No CSV files in import/")
				return nil
			}
			names := make([]string, 0, len(files))
			for _, f := range files {
				if err := a.importFile(cmd.Context(), cmd.OutOrStdout(), cfg, f.Path, opts, true); err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}
				names = append(names, f.Name)
			}
			return a.commit(cmd.Context(), "import: "+strings.Join(names, ", "))
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", importer.AutoFormat,
		"bank format ("+strings.Join(importer.DefaultRegistry().Formats(), ", ")+")")
	cmd.Flags().StringVar(&opts.familyID, "family", "", "record transactions as expenses for this family ID")

	return cmd
}

func (a *app) importFile(ctx context.Context, out io.Writer, cfg *config.Config, path string, opts importOptions, scanned bool) error {
	txns, err := importer.DefaultRegistry().ParseFile(opts.format, path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	a.logger.Debug("parsed file", zap.String("file", name), zap.Int("transactions", len(txns)))

	fmt.Fprintf(out, "%s: %d transactions\n", name, len(txns))
	printTransactions(out, txns, cfg.Household.Currency)

	entry := activity.Entry{
		Actor:   currentActor(),
		Action:  "parse",
		Subject: name,
		Count:   len(txns),
	}
	if opts.familyID != "" {
		result, err := a.recordExpenses(ctx, cfg, opts.familyID, txns)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded %d expenses, skipped %d\n", len(result.Added), len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(out, "  skipped %s %s: %s\n", s.Transaction.Date.Format("2006-01-02"), s.Transaction.Description, s.Reason)
		}
		entry.Action = "import"
		entry.Count = len(result.Added)
		entry.Details = "family " + opts.familyID
	}

	if scanned {
		moved, err := importer.MarkProcessed(a.dir, name)
		if err != nil {
			return err
		}
		a.logger.Debug("moved to processed", zap.String("path", moved))
	}
	return activity.Append(a.dir, entry)
}

func (a *app) recordExpenses(ctx context.Context, cfg *config.Config, familyID string, txns []model.BankTransaction) (expenses.ImportResult, error) {
	st, err := store.Open(cfg.Database.Driver, a.dsn(cfg))
	if err != nil {
		return expenses.ImportResult{}, err
	}
	defer st.Close()

	family, err := st.GetFamily(ctx, familyID)
	if err != nil {
		return expenses.ImportResult{}, fmt.Errorf("loading family %s: %w", familyID, err)
	}

	cats, err := a.loadCategories(family.Kind)
	if err != nil {
		return expenses.ImportResult{}, err
	}
	categorizer := categorize.NewService(cats, cfg.Categorizer.Rules, nil, cfg.Categorizer.Fallback, a.logger.Named("categorize"))
	svc := expenses.NewService(st, cats, cfg.Duplicates.Options()).WithCategorizer(categorizer)
	return svc.ImportTransactions(ctx, family.ID, family.OwnerID, txns)
}

// commit records the data directory's changes when it is tracked in git.
func (a *app) commit(ctx context.Context, message string) error {
	if !gitops.IsRepo(a.dir) {
		return nil
	}
	hash, err := gitops.Commit(ctx, a.dir, message, gitops.DefaultAuthor)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Debug("committed", zap.String("hash", hash), zap.String("message", message))
	return nil
}

func printTransactions(w io.Writer, txns []model.BankTransaction, currency string) {
	t := newTable("DATE", "DESCRIPTION", "AMOUNT", "REFERENCE").alignRight(2)
	for _, tx := range txns {
		t.addRow(
			tx.Date.Format("2006-01-02"),
			strings.Join(strings.Fields(tx.Description), " "),
			money.Format(tx.Amount, currency),
			tx.Reference,
		)
	}
	t.render(w)
}
