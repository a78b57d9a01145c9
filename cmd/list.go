package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	listUser string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:     "list [job-id...]",
	Aliases: []string{"ls"},
	Short:   "List waiting and running HyperQueue jobs",
	Long: `List the jobs hq reports as waiting or running, with their coarse state.

Finished jobs are not listed by hq; a job id given on the command line that
is missing from the output is no longer active.`,
	Example: `  hqadapter list
  hqadapter list 12 13
  hqadapter list --json`,
	SilenceUsage: true,
	RunE:         runList,
}

func init() {
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "Filter by user (not supported by HyperQueue)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print jobs as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	jobs, err := s.adapter.Query(ctx, args, listUser)
	if err != nil {
		return err
	}

	if listJSON {
		return writeJobsJSON(cmd.OutOrStdout(), jobs)
	}
	if len(jobs) == 0 {
		utils.PrintNote("No active jobs")
		return nil
	}
	writeJobTable(cmd.OutOrStdout(), jobs)
	return nil
}

type jobJSON struct {
	JobID    string `json:"job_id"`
	Title    string `json:"title"`
	State    string `json:"state"`
	RawState string `json:"raw_state"`
}

func writeJobsJSON(w io.Writer, jobs []scheduler.JobInfo) error {
	out := make([]jobJSON, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobJSON{JobID: j.JobID, Title: j.Title, State: j.State.String(), RawState: j.RawState})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeJobTable prints one line per job; no [AHQ] prefix for structured output.
func writeJobTable(w io.Writer, jobs []scheduler.JobInfo) {
	idWidth := len("JOB ID")
	for _, j := range jobs {
		if len(j.JobID) > idWidth {
			idWidth = len(j.JobID)
		}
	}
	fmt.Fprintf(w, "%-*s  %-12s  %-10s  %s\n", idWidth, "JOB ID", "STATE", "HQ STATE", "NAME")
	for _, j := range jobs {
		fmt.Fprintf(w, "%-*s  %-12s  %-10s  %s\n", idWidth, j.JobID, j.State.String(), j.RawState, j.Title)
	}
}
