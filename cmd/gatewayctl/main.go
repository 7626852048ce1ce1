package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/collections-service/internal/adapters/c6bank"
	"github.com/kevin07696/collections-service/internal/bootstrap"
	"github.com/kevin07696/collections-service/internal/config"
)

var (
	envFile string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gatewayctl",
		Short:        "Operate the C6 Bank integration: tokens, webhooks, slips and invoices",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(slipPDFCmd())
	rootCmd.AddCommand(slipUpdateCmd())
	rootCmd.AddCommand(statementCmd())
	rootCmd.AddCommand(amountDueCmd())
	rootCmd.AddCommand(pollCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is what every subcommand needs: configuration, a logger and a
// deadline
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Read(envFile)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return &session{
		cfg:    cfg,
		logger: bootstrap.NewLogger(cfg, "gatewayctl"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (s *session) close() {
	s.cancel()
	_ = s.logger.Sync()
}

func (s *session) gateway() (*c6bank.Client, error) {
	return bootstrap.NewGatewayClient(s.ctx, s.cfg, s.logger)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Request an access token to verify credentials and the client certificate",
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
			token, err := client.AccessToken(s.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token ok (%s, %d chars)\n", s.cfg.Gateway.Environment, len(token))
			return nil
		},
	}
}

func (s *session) services(loc *time.Location) (*bootstrap.Services, func(), error) {
	pool, err := bootstrap.NewPool(s.ctx, s.cfg, s.logger)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.gateway()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return bootstrap.NewServices(pool, client, s.cfg, loc, s.logger), pool.Close, nil
}
