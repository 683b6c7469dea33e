package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuacha-app/nuacha/internal/duplicates"
	"github.com/nuacha-app/nuacha/internal/expenses"
	"github.com/nuacha-app/nuacha/internal/money"
)

func newDuplicatesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates <expenses.csv>",
		Short: "List likely duplicate expenses in an exported expense file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening expenses: %w", err)
			}
			defer f.Close()

			list, err := expenses.ReadExpenses(f)
			if err != nil {
				return err
			}

			pairs := duplicates.Find(list, cfg.Duplicates.Options())
			out := cmd.OutOrStdout()
			if len(pairs) == 0 {
				fmt.Fprintf(out, "No likely duplicates among %d expenses\n", len(list))
				return nil
			}

			cur := cfg.Household.Currency
			t := newTable("SCORE", "FIRST", "SECOND", "AMOUNT", "REASONS").alignRight(0, 3)
			for _, p := range pairs {
				t.addRow(
					fmt.Sprintf("%.2f", p.Score),
					p.A.Date.Format("2006-01-02")+" "+p.A.Label(),
					p.B.Date.Format("2006-01-02")+" "+p.B.Label(),
					money.Format(p.A.Amount, cur),
					strings.Join(p.Reasons, "; "),
				)
			}
			t.render(out)
			fmt.Fprintf(out, "\n%d likely duplicate pairs\n", len(pairs))
			return nil
		},
	}
}
