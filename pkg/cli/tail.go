package cli

import (
	"github.com/spf13/cobra"

	"github.com/AdaptChat/harmony/pkg/client"
	"github.com/AdaptChat/harmony/pkg/wire"
)

var tailReconnect bool

// tailCmd connects, identifies, and prints every frame the gateway sends
// until the connection ends or the command is interrupted.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Connect, identify, and print every gateway frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		opts, err := clientOptions()
		if err != nil {
			return err
		}

		if tailReconnect {
			r := &client.Redialer{URL: cfg.GatewayURL, Token: cfg.Token, Opts: opts}
			err := r.Run(cmd.Context(), func(msg *wire.Outbound) {
				renderFrame(cmd, msg)
			})
			if err == cmd.Context().Err() {
				return nil // interrupted
			}
			return err
		}

		c, err := client.Dial(cmd.Context(), cfg.GatewayURL, opts...)
		if err != nil {
			return err
		}
		defer c.Close()

		hello, err := c.Recv(cmd.Context())
		if err != nil {
			return err
		}
		renderFrame(cmd, hello)

		if err := c.Identify(cfg.Token); err != nil {
			return err
		}

		for msg := range c.Listen(cmd.Context()) {
			renderFrame(cmd, msg)
		}
		return nil
	},
}

func init() {
	tailCmd.Flags().BoolVar(&tailReconnect, "reconnect", false, "automatically reconnect and re-identify on disconnect")
	rootCmd.AddCommand(tailCmd)
}
