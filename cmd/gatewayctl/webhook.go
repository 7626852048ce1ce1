package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the settlement notification endpoint for a payee key",
	}
	cmd.PersistentFlags().StringVar(&key, "key", "", "payee key (defaults to C6_PIX_KEY)")

	payeeKey := func(s *session) (string, error) {
		if key != "" {
			return key, nil
		}
		if s.cfg.Gateway.PixKey == "" {
			return "", fmt.Errorf("no payee key: pass --key or set C6_PIX_KEY")
		}
		return s.cfg.Gateway.PixKey, nil
	}

	setCmd := &cobra.Command{
		Use:   "set [url]",
		Short: "Register the notification URL (defaults to WEBHOOK_PUBLIC_URL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			target := s.cfg.Webhook.PublicURL
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return fmt.Errorf("no webhook URL: pass one or set WEBHOOK_PUBLIC_URL")
			}
			k, err := payeeKey(s)
			if err != nil {
				return err
			}

			client, err := s.gateway()
			if err != nil {
				return err
			}
			if err := client.RegisterWebhook(s.ctx, k, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook for %s -> %s\n", k, target)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the registered notification URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			k, err := payeeKey(s)
			if err != nil {
				return err
			}
			client, err := s.gateway()
			if err != nil {
				return err
			}
			hook, err := client.GetWebhook(s.ctx, k)
			if err != nil {
				return err
			}
			return printJSON(cmd, hook)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Stop notifications for the payee key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			k, err := payeeKey(s)
			if err != nil {
				return err
			}
			client, err := s.gateway()
			if err != nil {
				return err
			}
			if err := client.DeleteWebhook(s.ctx, k); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook for %s removed\n", k)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the notification URLs registered for every payee key",
		Args:  cobra.NoArgs,
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
			hooks, err := client.ListWebhooks(s.ctx, time.Time{}, time.Time{})
			if err != nil {
				return err
			}

			return printJSON(cmd, hooks)
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd)
	return cmd
}
