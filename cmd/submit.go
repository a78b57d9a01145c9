package cmd

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/adapter"
	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/journal"
	"github.com/Justype/hqadapter/internal/utils"
)

var (
	submitWorkDir   string
	submitScript    bool
	submitResources config.ResourceOverrides
)

var submitCmd = &cobra.Command{
	Use:   "submit <template.yaml | script.sh>",
	Short: "Submit a job to HyperQueue",
	Long: `Render a job template, upload the script into the work directory and submit it
with hq. With --script the argument is an existing script inside the work
directory and is submitted as is.

The job id is printed on stdout and recorded in the local job journal.`,
	Example: `  hqadapter submit job.yaml -w /scratch/me/run1
  hqadapter --host login1 submit job.yaml -w /scratch/me/run1
  hqadapter submit --script -w /scratch/me/run1 _hqsubmit.sh`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitWorkDir, "workdir", "w", "", "Directory on the target host to submit from (default: work_dir)")
	submitCmd.Flags().BoolVar(&submitScript, "script", false, "Submit an existing script instead of a template")
	addResourceFlags(submitCmd, &submitResources)
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	workdir := submitWorkDir
	if workdir == "" {
		workdir = config.Global.WorkDir
	}
	if workdir == "" && config.Global.Transport.Type == "ssh" {
		return fmt.Errorf("a work directory is required for remote submission (use --workdir or set work_dir)")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	entry := journal.Entry{
		Host:    config.Global.Transport.Host,
		WorkDir: workdir,
	}

	var jobID string
	if submitScript {
		entry.Script = args[0]
		jobID, err = s.adapter.Submit(ctx, workdir, args[0])
	} else {
		tmpl, lerr := loadTemplate(args[0], submitResources)
		if lerr != nil {
			return lerr
		}
		entry.Name = tmpl.JobName
		entry.UUID = tmpl.UUID
		entry.Script = path.Join(workdir, adapter.DefaultScriptName)
		jobID, err = s.adapter.SubmitTemplate(ctx, tmpl, workdir)
	}
	if err != nil {
		return err
	}

	entry.JobID = jobID
	entry.SubmittedAt = time.Now().UTC()
	if j, jerr := openJournal(); jerr != nil {
		utils.PrintWarning("Job %s submitted but not recorded: %v", jobID, jerr)
	} else if jerr := j.Record(entry); jerr != nil {
		utils.PrintWarning("Job %s submitted but not recorded: %v", jobID, jerr)
	}

	utils.PrintSuccess("Submitted job %s", utils.StyleNumber(jobID))
	fmt.Fprintln(cmd.OutOrStdout(), jobID)
	return nil
}
