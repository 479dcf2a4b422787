// Package cli implements the harmonyctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AdaptChat/harmony/pkg/client"
	"github.com/AdaptChat/harmony/pkg/config"
	"github.com/AdaptChat/harmony/pkg/wire"
)

var (
	// Global flags
	cfgFile    string
	gatewayURL string
	token      string
	format     string
	device     string

	// Shared state set during PersistentPreRun
	cfg *config.Config
)

// rootCmd is the base command for harmonyctl.
var rootCmd = &cobra.Command{
	Use:   "harmonyctl",
	Short: "Harmony gateway CLI for probing, tailing, and watching the event stream",
	Long: `Harmonyctl is the operator-facing CLI for the Harmony real-time gateway.
It connects to a gateway over WebSocket, performs the identify handshake,
and prints or visualises the event stream. Useful for probing deployments
and debugging client behavior.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if gatewayURL != "" {
			cfg.GatewayURL = gatewayURL
		}
		if token != "" {
			cfg.Token = token
		}
		if format != "" {
			cfg.Format = format
		}
		if device != "" {
			cfg.Device = device
		}
		return nil
	},
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

// clientOptions derives client dial options from the effective config.
func clientOptions() ([]client.Option, error) {
	f, err := wire.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return []client.Option{
		client.WithFormat(f),
		client.WithDevice(cfg.Device),
	}, nil
}

// requireToken fails early when no token is configured.
func requireToken() error {
	if cfg.Token == "" {
		return fmt.Errorf("no token configured: pass --token or set token in %s", config.DefaultPath())
	}
	return nil
}

// renderFrame prints a received frame as a single line of JSON, whatever the
// wire format was.
func renderFrame(cmd *cobra.Command, m *wire.Outbound) {
	data, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", m)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.harmony/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", "gateway WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "authentication token for identify")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "wire format: json or msgpack (default \"json\")")
	rootCmd.PersistentFlags().StringVar(&device, "device", "", "device class reported at identify: desktop, mobile, web")
}
