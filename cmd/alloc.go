package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/hq"
	"github.com/Justype/hqadapter/internal/utils"
)

var allocOpts = hq.AllocOptions{}

var allocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Manage automatic Slurm allocations of the hq server",
}

var allocAddCmd = &cobra.Command{
	Use:   "add --time-limit <T> [-- <sbatch options>...]",
	Short: "Create an allocation queue submitting hq workers through Slurm",
	Long: `Create an hq allocation queue on Slurm. Everything after "--" is passed to
sbatch unchanged.

Time limit format:
  Go style:  2h, 30m, 1h30m, 90s
  HPC style: 02:00:00, 2:30:00, 1:30 (HH:MM:SS or HH:MM)`,
	Example: `  hqadapter alloc add -t 2h -- --partition=compute --account=proj42
  hqadapter alloc add -t 01:00:00 --backlog 2 --workers-per-alloc 4 -- -p short`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := allocOpts
		opts.SlurmOptions = args
		out, err := s.client.AllocAdd(ctx, opts)
		if err != nil {
			return err
		}
		utils.PrintSuccess("%s", out)
		return nil
	},
}

var allocListCmd = &cobra.Command{
	Use:          "list",
	Aliases:      []string{"ls"},
	Short:        "List allocation queues",
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

		out, err := s.client.AllocList(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), ensureNewline(out))
		return nil
	},
}

var allocRemoveCmd = &cobra.Command{
	Use:          "remove <alloc-id>",
	Aliases:      []string{"rm"},
	Short:        "Remove an allocation queue",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := s.client.AllocRemove(ctx, args[0])
		if err != nil {
			return err
		}
		utils.PrintSuccess("%s", out)
		return nil
	},
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func init() {
	f := allocAddCmd.Flags()
	f.StringVarP(&allocOpts.TimeLimit, "time-limit", "t", "", "Wall time of each allocation (required)")
	f.IntVar(&allocOpts.Backlog, "backlog", 1, "Allocations kept queued in Slurm")
	f.IntVar(&allocOpts.WorkersPerAlloc, "workers-per-alloc", 1, "Workers started per allocation")
	f.BoolVar(&allocOpts.HyperThreading, "hyper-threading", false, "Let hq use hyperthreads")
	f.StringVar(&allocOpts.Name, "name", hq.DefaultAllocName, "Allocation queue name")
	_ = allocAddCmd.MarkFlagRequired("time-limit")

	allocCmd.AddCommand(allocAddCmd)
	allocCmd.AddCommand(allocListCmd)
	allocCmd.AddCommand(allocRemoveCmd)
	rootCmd.AddCommand(allocCmd)
}
