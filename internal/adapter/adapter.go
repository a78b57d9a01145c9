// Package adapter drives a Scheduler through a Transport: it renders and
// uploads job scripts, runs the hq commands and hands their output to the
// matching parsers.
package adapter

import (
	"context"
	"fmt"
	"path"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/transport"
	"github.com/Justype/hqadapter/internal/utils"
)

// DefaultScriptName is the file name used for uploaded job scripts.
const DefaultScriptName = "_hqsubmit.sh"

// Adapter is safe for concurrent use as long as its Transport is.
type Adapter struct {
	sched      scheduler.Scheduler
	transport  transport.Transport
	scriptName string
}

// New returns an Adapter using sched to build and parse commands and t to run them.
func New(sched scheduler.Scheduler, t transport.Transport) *Adapter {
	return &Adapter{
		sched:      sched,
		transport:  t,
		scriptName: DefaultScriptName,
	}
}

// Scheduler returns the scheduler the adapter was built with.
func (a *Adapter) Scheduler() scheduler.Scheduler {
	return a.sched
}

// WriteSubmitScript renders the full job script for tmpl, newline terminated.
func (a *Adapter) WriteSubmitScript(tmpl *scheduler.JobTemplate) (string, error) {
	script, err := scheduler.RenderSubmitScript(a.sched, tmpl)
	if err != nil {
		return "", err
	}
	return script + "\n", nil
}

func (a *Adapter) exec(ctx context.Context, command string) (*transport.Result, error) {
	res, err := a.transport.Exec(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	utils.PrintDebug("retval=%d stdout=%q stderr=%q", res.ExitCode, res.Stdout, res.Stderr)
	return res, nil
}

// Submit submits scriptName, which must already exist in workdir, and
// returns the job id.
func (a *Adapter) Submit(ctx context.Context, workdir, scriptName string) (string, error) {
	command := a.sched.SubmitCommand(utils.ShellQuote(scriptName))
	if workdir != "" {
		command = fmt.Sprintf("cd %s && %s", utils.ShellQuote(workdir), command)
	}

	res, err := a.exec(ctx, command)
	if err != nil {
		return "", err
	}
	return a.sched.ParseSubmitOutput(res.ExitCode, res.Stdout, res.Stderr)
}

// SubmitTemplate renders tmpl, uploads it into workdir and submits it.
// Validation problems are reported before anything touches the remote host.
func (a *Adapter) SubmitTemplate(ctx context.Context, tmpl *scheduler.JobTemplate, workdir string) (string, error) {
	script, err := a.WriteSubmitScript(tmpl)
	if err != nil {
		return "", err
	}

	scriptPath := path.Join(workdir, a.scriptName)
	if err := a.transport.WriteFile(ctx, scriptPath, []byte(script), utils.PermScript); err != nil {
		return "", fmt.Errorf("could not upload job script: %w", err)
	}
	utils.PrintDebug("Job script written to %s", utils.StylePath(scriptPath))

	return a.Submit(ctx, workdir, a.scriptName)
}

// Query lists active jobs. When jobIDs is non-empty only those jobs are
// returned; a requested id that is missing is no longer active.
func (a *Adapter) Query(ctx context.Context, jobIDs []string, user string) ([]scheduler.JobInfo, error) {
	command, err := a.sched.JobListCommand(jobIDs, user)
	if err != nil {
		return nil, err
	}

	res, err := a.exec(ctx, command)
	if err != nil {
		return nil, err
	}
	jobs, err := a.sched.ParseJobListOutput(res.ExitCode, res.Stdout, res.Stderr)
	if err != nil {
		return nil, err
	}
	if len(jobIDs) == 0 {
		return jobs, nil
	}

	wanted := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		wanted[id] = true
	}
	filtered := make([]scheduler.JobInfo, 0, len(jobIDs))
	for _, job := range jobs {
		if wanted[job.JobID] {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

// checkJobID rejects ids that cannot be an hq job id before they reach a shell.
func checkJobID(jobID string) error {
	if !scheduler.ValidJobID(jobID) {
		return scheduler.NewValidationError("job_id", fmt.Sprintf("invalid job id %q", jobID))
	}
	return nil
}

// Cancel asks hq to cancel jobID. A false result with a nil error means hq
// refused, for example because the job already finished.
func (a *Adapter) Cancel(ctx context.Context, jobID string) (bool, error) {
	if err := checkJobID(jobID); err != nil {
		return false, err
	}
	res, err := a.exec(ctx, a.sched.KillCommand(jobID))
	if err != nil {
		return false, err
	}
	return a.sched.ParseKillOutput(res.ExitCode, res.Stdout, res.Stderr), nil
}

// DetailedInfo returns the full hq view of jobID, including per-task errors.
func (a *Adapter) DetailedInfo(ctx context.Context, jobID string) (*scheduler.DetailedJobInfo, error) {
	if err := checkJobID(jobID); err != nil {
		return nil, err
	}
	res, err := a.exec(ctx, a.sched.DetailedJobInfoCommand(jobID))
	if err != nil {
		return nil, err
	}
	return a.sched.ParseDetailedJobInfoOutput(jobID, res.ExitCode, res.Stdout, res.Stderr), nil
}
