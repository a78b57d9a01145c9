package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/adapter"
	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	renderOutput    string
	renderResources config.ResourceOverrides
)

var renderCmd = &cobra.Command{
	Use:   "render <template.yaml>",
	Short: "Render the HyperQueue job script for a job template",
	Long: `Render the job script (shebang, #HQ directives and body) for a YAML or JSON
job template without contacting hq.`,
	Example: `  hqadapter render job.yaml            # Print the script
  hqadapter render job.json -o run.sh  # Write it to run.sh`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write the script to this file instead of stdout")
	addResourceFlags(renderCmd, &renderResources)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	tmpl, err := loadTemplate(args[0], renderResources)
	if err != nil {
		return err
	}
	sched, err := scheduler.NewHyperQueueSchedulerWithOptions(config.Global.SchedulerOptions())
	if err != nil {
		return err
	}

	// Rendering never runs anything, so no transport is needed.
	script, err := adapter.New(sched, nil).WriteSubmitScript(tmpl)
	if err != nil {
		return err
	}

	if renderOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	}
	if err := os.WriteFile(renderOutput, []byte(script), utils.PermScript); err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOutput, err)
	}
	utils.PrintSuccess("Job script written to %s", utils.StylePath(renderOutput))
	return nil
}
