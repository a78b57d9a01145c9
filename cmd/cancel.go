package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/utils"
)

var cancelCmd = &cobra.Command{
	Use:     "cancel <job-id>...",
	Aliases: []string{"kill"},
	Short:   "Cancel HyperQueue jobs",
	Example: `  hqadapter cancel 12
  hqadapter cancel 12 13 14`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	failed := 0
	for _, id := range args {
		ok, err := s.adapter.Cancel(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			utils.PrintSuccess("Cancelled job %s", utils.StyleNumber(id))
		} else {
			utils.PrintWarning("hq did not cancel job %s", id)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs could not be cancelled", failed, len(args))
	}
	return nil
}
