package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuacha-app/nuacha/internal/budget"
	"github.com/nuacha-app/nuacha/internal/money"
)

func newBudgetCommand(a *app) *cobra.Command {
	var income, rule string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Split monthly income into needs, wants and savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			amount, err := money.Parse(income)
			if err != nil {
				return fmt.Errorf("parsing --income: %w", err)
			}
			r := cfg.Budget
			if rule != "" {
				if r, err = budget.ParseRule(rule); err != nil {
					return err
				}
			}

			plan, err := budget.NewPlan(amount, r)
			if err != nil {
				return err
			}

			cur := cfg.Household.Currency
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Income %s, rule %s\n\n", money.Format(plan.Income, cur), plan.Rule)
			t := newTable("GROUP", "SHARE", "AMOUNT").alignRight(1, 2)
			for _, al := range plan.Allocations {
				t.addRow(string(al.Group), fmt.Sprintf("%d%%", al.Percent), money.Format(al.Amount, cur))
			}
			t.render(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&income, "income", "", "monthly income (required)")
	_ = cmd.MarkFlagRequired("income")
	cmd.Flags().StringVar(&rule, "rule", "", "needs/wants/savings percentages (default from nuacha.yaml)")

	return cmd
}
