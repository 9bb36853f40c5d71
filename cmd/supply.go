package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/supplybot/internal/domain/booking"
)

func newSupplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Manage supplies in the postgres store",
	}
	cmd.AddCommand(newSupplyAddCmd())
	cmd.AddCommand(newSupplyListCmd())
	return cmd
}

func newSupplyAddCmd() *cobra.Command {
	var (
		accountID   string
		preorderID  string
		warehouse   string
		mode        string
		dates       string
		coefficient string
		priority    string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a supply to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := booking.ParseMode(mode)
			if err != nil {
				return err
			}
			coeff, err := booking.ParseCoefficientTarget(coefficient)
			if err != nil {
				return err
			}
			prio, err := booking.ParsePriority(priority)
			if err != nil {
				return err
			}
			s := booking.Supply{
				PreorderID: preorderID,
				Warehouse:  warehouse,
				Settings: booking.BookingSettings{
					Mode:        m,
					TargetDates: splitCSV(dates),
					Coefficient: coeff,
					Priority:    prio,
				},
				Status: booking.Status{Active: true},
			}
			if err := s.Settings.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.CreateSupply(ctx, accountID, s); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "supply %s account=%s mode=%s coefficient=%s\n",
				preorderID, accountID, m, coeff)
			return nil
		},
	}

	c.Flags().StringVar(&accountID, "account", "", "account id")
	c.Flags().StringVar(&preorderID, "preorder-id", "", "portal order number")
	c.Flags().StringVar(&warehouse, "warehouse", "", "warehouse name (informational)")
	c.Flags().StringVar(&mode, "mode", "any_date", "booking mode (any_date or specific_dates)")
	c.Flags().StringVar(&dates, "dates", "", "comma-separated calendar date labels for specific_dates")
	c.Flags().StringVar(&coefficient, "coefficient", "any", "acceptable coefficient (any, free or a max value)")
	c.Flags().StringVar(&priority, "priority", "calendar_order", "slot priority (calendar_order or lower_coefficient)")
	_ = c.MarkFlagRequired("account")
	_ = c.MarkFlagRequired("preorder-id")
	return c
}

func newSupplyListCmd() *cobra.Command {
	var accountID string
	c := &cobra.Command{
		Use:   "list",
		Short: "List an account's supplies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			accounts, err := st.Accounts(ctx)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				if a.ID != accountID {
					continue
				}
				for _, s := range a.Supplies {
					fmt.Fprintf(os.Stdout, "preorder=%s warehouse=%q mode=%s coefficient=%s active=%t booked=%t reservation=%s attempts=%d\n",
						s.PreorderID, s.Warehouse, s.Settings.Mode, s.Settings.Coefficient,
						s.Status.Active, s.Status.Booked, s.Status.ReservationID, s.Status.Attempts)
				}
				return nil
			}
			return fmt.Errorf("account %s not found", accountID)
		},
	}
	c.Flags().StringVar(&accountID, "account", "", "account id")
	_ = c.MarkFlagRequired("account")
	return c
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
