package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/utils"
)

var schedulerCmd = &cobra.Command{
	Use:     "scheduler",
	Aliases: []string{"sched"},
	Short:   "Display scheduler information",
	Long: `Display information about the configured HyperQueue scheduler.

Shows the hq binary, the version dependent flags in use, the transport and
whether an hq server answers.`,
	Example: `  hqadapter scheduler           # Show scheduler information
  hqadapter sched               # Short alias`,
	SilenceUsage: true,
	RunE:         runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	info := s.sched.GetInfo()
	w := cmd.OutOrStdout()

	// Display scheduler information (no [AHQ] prefix for structured output)
	fmt.Fprintln(w, "Scheduler Information:")
	fmt.Fprintf(w, "  Type:      %s\n", utils.StyleInfo(info.Type))
	fmt.Fprintf(w, "  Binary:    %s\n", utils.StylePath(info.Binary))
	if info.Capabilities.Version != "" {
		fmt.Fprintf(w, "  Version:   %s\n", utils.StyleNumber(info.Capabilities.Version))
	} else {
		fmt.Fprintf(w, "  Version:   %s\n", utils.StyleWarning("unknown (assuming a current release)"))
	}
	htFlag := "--cpus no-ht"
	if info.Capabilities.NoHyperThreadingFlag {
		htFlag = "--no-hyper-threading"
	}
	fmt.Fprintf(w, "  No-HT:     %s\n", htFlag)

	target := "local"
	if config.Global.Transport.Type == "ssh" {
		target = "ssh " + config.Global.Transport.Host
	}
	fmt.Fprintf(w, "  Transport: %s\n", target)

	ctx, cancel := signalContext(cmd)
	defer cancel()
	running, err := s.client.ServerRunning(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(w, "  Server:    %s (%v)\n", utils.StyleError("Unreachable"), err)
	case running:
		fmt.Fprintf(w, "  Server:    %s\n", utils.StyleSuccess("Running"))
	default:
		fmt.Fprintf(w, "  Server:    %s\n", utils.StyleWarning("Not running"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Start one with 'hqadapter server start'.")
	}
	return nil
}
