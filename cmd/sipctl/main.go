// Command sipctl drives a running sipledger server over gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcadapter "github.com/simaogato/sipledger-backend/internal/adapter/grpc"
	"github.com/simaogato/sipledger-backend/internal/config"
)

var (
	flagConfig  string
	flagAddr    string
	flagToken   string
	flagTimeout time.Duration
)

// dial opens the client connection; tests swap it for an in-memory listener.
var dial = func(addr string) (grpc.ClientConnInterface, func() error, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

var rootCmd = &cobra.Command{
	Use:           "sipctl",
	Short:         "Manage installment plans on a sipledger server",
	Long:          "Create plans, run the scheduler, settle installments and check plan health.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return resolveConnection(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.Path(), "Server config file (TOML) to read addr and token from")
	rootCmd.PersistentFlags().StringVarP(&flagAddr, "addr", "a", "", "Server address (default from config, then localhost:8080)")
	rootCmd.PersistentFlags().StringVarP(&flagToken, "token", "t", "", "API token (default from config)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Per-command deadline")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConnection fills the address and token from the config file when not given as flags
func resolveConnection(cmd *cobra.Command) error {
	if flagAddr != "" && flagToken != "" {
		return nil
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr == "" {
		flagAddr = cfg.Server.Addr
		if len(flagAddr) > 0 && flagAddr[0] == ':' {
			flagAddr = "localhost" + flagAddr
		}
	}
	if flagToken == "" && !cmd.Flags().Changed("token") {
		flagToken = cfg.Server.APIToken
	}
	return nil
}

// withClient runs fn against a connected client under the command deadline
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *grpcadapter.Client) error) error {
	conn, closeConn, err := dial(flagAddr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", flagAddr, err)
	}
	defer func() { _ = closeConn() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	return fn(ctx, grpcadapter.NewClient(conn, flagToken))
}
