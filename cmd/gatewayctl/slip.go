package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kevin07696/collections-service/internal/adapters/c6bank"
	"github.com/kevin07696/collections-service/pkg/timeutil"
)

func slipUpdateCmd() *cobra.Command {
	var amount, dueDate string

	cmd := &cobra.Command{
		Use:   "slip-update [gateway-slip-id]",
		Short: "Change the amount or due date of an issued bank slip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := &c6bank.BankSlipUpdate{}
			if amount != "" {
				value, err := decimal.NewFromString(amount)
				if err != nil || !value.IsPositive() {
					return fmt.Errorf("invalid --amount %q", amount)
				}
				update.Amount = json.Number(value.StringFixed(2))
			}
			if dueDate != "" {
				date, err := time.Parse(timeutil.DateLayout, dueDate)
				if err != nil {
					return fmt.Errorf("invalid --due-date %q: want YYYY-MM-DD", dueDate)
				}
				update.DueDate = timeutil.FormatDate(date)
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			client, err := s.gateway()
			if err != nil {
				return err
			}
			slip, err := client.UpdateBankSlip(s.ctx, args[0], update)
			if err != nil {
				return err
			}
			return printJSON(cmd, slip)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "new amount, e.g. 150.00")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "new due date YYYY-MM-DD")
	return cmd
}

func statementCmd() *cobra.Command {
	var from, to string
	var page int

	cmd := &cobra.Command{
		Use:       "statement [receivables|transactions]",
		Short:     "Print a page of the card receivables or card transactions statement",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{c6bank.StatementReceivables, c6bank.StatementTransactions},
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(timeutil.DateLayout, from)
			if err != nil {
				return fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
			}
			var end time.Time
			if to != "" {
				if end, err = time.Parse(timeutil.DateLayout, to); err != nil {
					return fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
				}
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			client, err := s.gateway()
			if err != nil {
				return err
			}
			body, err := client.GetStatement(s.ctx, args[0], start, end, page)
			if err != nil {
				return err
			}
			return printJSON(cmd, body)
		},
	}
	cmd.Flags().StringVar(&from, "from", timeutil.FormatDate(time.Now()), "first day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (defaults to --from)")
	cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
	return cmd
}
