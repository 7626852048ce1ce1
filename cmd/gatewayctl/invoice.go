package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func slipPDFCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "slip-pdf [gateway-slip-id]",
		Short: "Download the printable PDF of a bank slip by its gateway id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			client, err := s.gateway()
			if err != nil {
				return err
			}
			pdf, err := client.GetBankSlipPDF(s.ctx, args[0])
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + ".pdf"
			}
			if err := os.WriteFile(output, pdf, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(pdf))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to <id>.pdf)")
	return cmd
}

func amountDueCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "amount-due [invoice-id]",
		Short: "Price an invoice with penalty and interest as of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || invoiceID <= 0 {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			loc, err := s.cfg.Billing.Location()
			if err != nil {
				return err
			}
			var date time.Time
			if asOf != "" {
				if date, err = time.ParseInLocation("2006-01-02", asOf, loc); err != nil {
					return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", asOf)
				}
			}

			services, closePool, err := s.services(loc)
			if err != nil {
				return err
			}
			defer closePool()

			result, err := services.Charges.AmountDue(s.ctx, invoiceID, date)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "pricing date YYYY-MM-DD (defaults to today)")
	return cmd
}

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll [transaction-id]",
		Short: "Refresh a transaction from the gateway and settle it when paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			loc, err := s.cfg.Billing.Location()
			if err != nil {
				return err
			}
			services, closePool, err := s.services(loc)
			if err != nil {
				return err
			}
			defer closePool()

			txn, err := services.Reconciliation.PollStatus(s.ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, txn)
		},
	}
}
