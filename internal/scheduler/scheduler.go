// Package scheduler translates generic job templates into HyperQueue job
// scripts and commands, and parses hq output back into job state.
package scheduler

import "strings"

// SchedulerName is used in logs and errors.
const SchedulerName = "HyperQueue"

// DefaultBinary is the hq executable name looked up on the remote PATH.
const DefaultBinary = "hq"

// DirectivePrefix starts every header line scanned by `hq submit`.
const DirectivePrefix = "#HQ"

// SchedulerInfo holds information about the configured scheduler
type SchedulerInfo struct {
	Type         string       // Scheduler type ("HyperQueue")
	Binary       string       // hq binary as invoked on the target host
	Capabilities Capabilities // Version dependent flags
}

// JobInfo is one entry of a job list query. It is built fresh on every query.
type JobInfo struct {
	JobID    string   // Remote id, verbatim
	Title    string   // Job name
	State    JobState // Coarse state
	RawState string   // Remote token the state was mapped from

	// Inconsistent marks a job hq lists as waiting or running whose record
	// is not one task in one state. Its State is JobStateUndetermined.
	Inconsistent bool
}

// TaskDetail is the per-task part of `hq job info`.
type TaskDetail struct {
	ID    string
	State string
	Error string
}

// DetailedJobInfo is the outcome of a detailed info query. The raw streams
// are always kept; Tasks is filled when stdout could be decoded.
type DetailedJobInfo struct {
	JobID     string
	Retval    int
	Stdout    string
	Stderr    string
	Name      string
	Tasks     []TaskDetail
	Decoded   bool
	DecodeErr string // Why stdout could not be decoded, if it could not
}

// RemoteStates returns the distinct task states reported for the job, upper case.
func (d *DetailedJobInfo) RemoteStates() []string {
	seen := make(map[string]bool)
	var states []string
	for _, t := range d.Tasks {
		s := strings.ToUpper(t.State)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		states = append(states, s)
	}
	return states
}

// FailureCause returns the first task error message, or the terminal remote
// state when a task ended without FINISHED. Empty when nothing went wrong.
func (d *DetailedJobInfo) FailureCause() string {
	for _, t := range d.Tasks {
		if t.Error != "" {
			return t.Error
		}
	}
	for _, s := range d.RemoteStates() {
		if s == "FAILED" || s == "CANCELED" {
			return s
		}
	}
	return ""
}

// Scheduler is the capability set a generic driver needs from a queue system:
// script header rendering plus build/parse pairs for every control command.
// Implementations must be stateless apart from immutable configuration.
type Scheduler interface {
	// GetInfo returns information about the scheduler
	GetInfo() *SchedulerInfo

	// SubmitScriptHeader renders the directive block for a job template
	SubmitScriptHeader(tmpl *JobTemplate) string

	// SubmitCommand returns the command that submits the script at scriptPath
	SubmitCommand(scriptPath string) string

	// ParseSubmitOutput extracts the job id from the submit command result
	ParseSubmitOutput(retval int, stdout, stderr string) (string, error)

	// JobListCommand returns the command listing active jobs
	JobListCommand(jobIDs []string, user string) (string, error)

	// ParseJobListOutput parses the job list command result
	ParseJobListOutput(retval int, stdout, stderr string) ([]JobInfo, error)

	// KillCommand returns the command cancelling a job
	KillCommand(jobID string) string

	// ParseKillOutput reports whether the cancel command succeeded
	ParseKillOutput(retval int, stdout, stderr string) bool

	// DetailedJobInfoCommand returns the command fetching full job information
	DetailedJobInfoCommand(jobID string) string

	// ParseDetailedJobInfoOutput wraps the detailed info command result
	ParseDetailedJobInfoOutput(jobID string, retval int, stdout, stderr string) *DetailedJobInfo
}
