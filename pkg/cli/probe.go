package cli

import (
	"github.com/spf13/cobra"

	"github.com/AdaptChat/harmony/pkg/client"
)

// probeCmd performs a single handshake round-trip: connect, print the hello,
// identify, print the next frame, exit. A healthy gateway answers with a
// ready; anything else (or a close) surfaces as-is.
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Connect, identify, and print the gateway's first two frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		opts, err := clientOptions()
		if err != nil {
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

		next, err := c.Recv(cmd.Context())
		if err != nil {
			return err
		}
		renderFrame(cmd, next)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
