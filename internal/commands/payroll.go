package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/money"
)

func newPayrollCommand(a *app) *cobra.Command {
	var gross, period, date string

	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Calculate NIS, health surcharge and PAYE for one pay run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			amount, err := money.Parse(gross)
			if err != nil {
				return fmt.Errorf("parsing --gross: %w", err)
			}
			start := time.Now()
			if date != "" {
				start, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
			}

			res, err := cfg.Payroll.Calculate(amount, model.PayPeriod(period), start)
			if err != nil {
				return err
			}

			cur := cfg.Household.Currency
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pay period   %s %s to %s (%d NIS weeks)\n", res.Period,
				res.PeriodStart.Format("2006-01-02"), res.PeriodEnd.Format("2006-01-02"), res.Weeks)
			nisClass := res.NISWeekly.Class
			if res.NISWeekly.Fallback {
				nisClass = "percentage"
			}
			if nisClass == "" {
				nisClass = "none"
			}
			fmt.Fprintf(out, "NIS class    %s\n\n", nisClass)

			t := newTable("ITEM", "AMOUNT").alignRight(1)
			t.addRow("Gross pay", money.Format(res.Gross, cur))
			t.addRow("NIS (employee)", money.Format(res.NISEmployee, cur))
			t.addRow("Health surcharge", money.Format(res.HealthSurcharge, cur))
			t.addRow("PAYE", money.Format(res.PAYE, cur))
			t.addRow("Net pay", money.Format(res.Net, cur))
			t.addRow("NIS (employer)", money.Format(res.NISEmployer, cur))
			t.addRow("Employer cost", money.Format(res.EmployerCost(), cur))
			t.render(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&gross, "gross", "", "gross pay for the period (required)")
	_ = cmd.MarkFlagRequired("gross")
	cmd.Flags().StringVar(&period, "period", string(model.PayMonthly), "weekly, fortnightly or monthly")
	cmd.Flags().StringVar(&date, "date", "", "period start date, YYYY-MM-DD (default today)")

	return cmd
}
