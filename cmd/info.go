package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/utils"
)

var infoRaw bool

var infoCmd = &cobra.Command{
	Use:   "info <job-id>",
	Short: "Show detailed information about a HyperQueue job",
	Long: `Show the hq view of one job, including the state and error of every task.
This works for finished jobs too, which list no longer shows.`,
	Example: `  hqadapter info 12
  hqadapter info 12 --raw   # Print the compact JSON returned by hq`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoRaw, "raw", false, "Print hq's output unchanged")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.adapter.DetailedInfo(ctx, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if infoRaw {
		fmt.Fprintln(w, strings.TrimSpace(info.Stdout))
		return nil
	}
	if info.Retval != 0 {
		return fmt.Errorf("hq job info %s returned %d: %s", info.JobID, info.Retval, strings.TrimSpace(info.Stderr))
	}
	if !info.Decoded {
		utils.PrintWarning("Could not decode hq output: %s", info.DecodeErr)
		fmt.Fprintln(w, strings.TrimSpace(info.Stdout))
		return nil
	}

	fmt.Fprintf(w, "Job %s", utils.StyleNumber(info.JobID))
	if info.Name != "" {
		fmt.Fprintf(w, " (%s)", utils.StyleName(info.Name))
	}
	fmt.Fprintln(w)
	if states := info.RemoteStates(); len(states) > 0 {
		fmt.Fprintf(w, "  States: %s\n", strings.Join(states, ", "))
	}
	for _, t := range info.Tasks {
		line := fmt.Sprintf("  Task %s: %s", t.ID, t.State)
		if t.Error != "" {
			line += " - " + utils.StyleError(t.Error)
		}
		fmt.Fprintln(w, line)
	}
	if cause := info.FailureCause(); cause != "" {
		fmt.Fprintf(w, "  Failure: %s\n", cause)
	}
	return nil
}
