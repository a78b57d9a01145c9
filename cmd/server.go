package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/utils"
)

var serverDomain string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the hq server on the target host",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the hq server in the background",
	Long: `Start a detached hq server unless one is already running. Its output goes to
$HOME/.hq-stdout and $HOME/.hq-stderr on the target host.

With --domain the server listens on <hostname>.<domain>, which compute nodes
must be able to resolve.`,
	Example: `  hqadapter server start
  hqadapter server start --domain cluster.example.org`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		started, err := s.client.StartServer(ctx, serverDomain)
		if err != nil {
			return err
		}
		if started {
			utils.PrintSuccess("hq server started")
		}
		return nil
	},
}

var serverStopCmd = &cobra.Command{
	Use:          "stop",
	Short:        "Stop the hq server (closes all allocations)",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		stopped, err := s.client.StopServer(ctx)
		if err != nil {
			return err
		}
		if stopped {
			utils.PrintSuccess("hq server stopped")
		}
		return nil
	},
}

var serverRestartCmd = &cobra.Command{
	Use:          "restart",
	Short:        "Stop and start the hq server",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.client.RestartServer(ctx, serverDomain); err != nil {
			return err
		}
		utils.PrintSuccess("hq server restarted")
		return nil
	},
}

var serverInfoCmd = &cobra.Command{
	Use:          "info",
	Short:        "Print `hq server info`",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := s.client.ServerInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	serverStartCmd.Flags().StringVar(&serverDomain, "domain", "", "Listen on <hostname>.<domain>")
	serverRestartCmd.Flags().StringVar(&serverDomain, "domain", "", "Listen on <hostname>.<domain>")

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverRestartCmd)
	serverCmd.AddCommand(serverInfoCmd)
	rootCmd.AddCommand(serverCmd)
}
