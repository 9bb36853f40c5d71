package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/supplybot/internal/domain/booking"
	"github.com/example/supplybot/internal/store"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts in the postgres store",
	}
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountListCmd())
	return cmd
}

func openStore(ctx context.Context) (*store.Postgres, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for store commands")
	}
	return store.OpenPostgres(ctx, url)
}

func newAccountAddCmd() *cobra.Command {
	var (
		id     string
		tier   string
		chatID string
	)
	c := &cobra.Command{
		Use:   "add",
		Short: "Create or update an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := booking.ParseTier(tier)
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.CreateAccount(ctx, booking.Account{ID: id, Tier: t, ChatID: chatID}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "account %s tier=%s\n", id, t)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "account id (the portal identity number)")
	c.Flags().StringVar(&tier, "tier", "free", "access tier (free or paid)")
	c.Flags().StringVar(&chatID, "telegram-chat-id", "", "telegram chat for this account's notifications")
	_ = c.MarkFlagRequired("id")
	return c
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and their supplies",
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
				fmt.Fprintf(os.Stdout, "account=%s tier=%s supplies=%d\n", a.ID, a.Tier, len(a.Supplies))
			}
			return nil
		},
	}
}
