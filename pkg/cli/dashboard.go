package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AdaptChat/harmony/pkg/client"
	"github.com/AdaptChat/harmony/pkg/tui"
	"github.com/AdaptChat/harmony/pkg/wire"
)

// dashboardCmd launches the interactive TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch a live TUI view of the gateway event stream",
	Long: `Launch an interactive terminal dashboard that connects to the gateway,
identifies, and displays events as they arrive. The connection is
maintained across disconnects with automatic re-identify.

Key bindings:
  c                Clear the event table
  q / Ctrl+C       Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		opts, err := clientOptions()
		if err != nil {
			return err
		}

		p := tea.NewProgram(tui.New(cfg.GatewayURL), tea.WithAltScreen())

		r := &client.Redialer{
			URL:   cfg.GatewayURL,
			Token: cfg.Token,
			Opts:  opts,
			OnReady: func(ready *wire.Outbound) {
				p.Send(tui.ConnStateMsg{State: "connected"})
				p.Send(tui.EventMsg{Event: ready})
			},
		}
		go func() {
			err := r.Run(cmd.Context(), func(msg *wire.Outbound) {
				p.Send(tui.EventMsg{Event: msg})
			})
			if err != nil && err != cmd.Context().Err() {
				p.Send(tui.ErrMsg{Err: err})
			}
		}()

		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
