package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/journal"
	"github.com/Justype/hqadapter/internal/utils"
)

var historyPrune bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show jobs submitted through hqadapter",
	Long: `Show the local journal of submitted jobs with the last state seen by watch.
--prune forgets the jobs seen finishing.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		if historyPrune {
			n, err := j.PruneDone()
			if err != nil {
				return err
			}
			utils.PrintSuccess("Removed %d finished job(s) from the journal", n)
			return nil
		}

		entries, err := j.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			utils.PrintNote("No jobs recorded in %s", utils.StylePath(j.Dir()))
			return nil
		}
		writeHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "Remove finished jobs from the journal")
	rootCmd.AddCommand(historyCmd)
}

func writeHistory(w io.Writer, entries []journal.Entry) {
	fmt.Fprintf(w, "%-8s  %-19s  %-12s  %-16s  %s\n", "JOB ID", "SUBMITTED", "STATE", "HOST", "NAME")
	for _, e := range entries {
		state := e.State
		if state == "" {
			state = "-"
		}
		host := e.Host
		if host == "" {
			host = "local"
		}
		fmt.Fprintf(w, "%-8s  %-19s  %-12s  %-16s  %s\n",
			e.JobID, e.SubmittedAt.Local().Format(time.DateTime), state, host, e.Name)
		if e.Cause != "" {
			fmt.Fprintf(w, "%-8s  %s\n", "", e.Cause)
		}
	}
}
