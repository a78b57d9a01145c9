package scheduler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Justype/hqadapter/internal/utils"
)

// DefaultCompactFilter re-serializes a JSON document on a single line.
// python3 is far more common on login nodes than jq.
const DefaultCompactFilter = `python3 -c 'import json, sys; print(json.dumps(json.load(sys.stdin)))'`

// HyperQueueOptions configures a HyperQueueScheduler.
type HyperQueueOptions struct {
	Binary        string // hq executable on the target host (DefaultBinary if empty)
	Version       string // Known hq version; empty assumes a current release
	CompactFilter string // Shell filter that compacts JSON to one line (DefaultCompactFilter if empty)
}

// HyperQueueScheduler implements the Scheduler interface for HyperQueue.
// All fields are fixed at construction, so a value is safe for concurrent use.
type HyperQueueScheduler struct {
	hqBin         string
	compactFilter string
	caps          Capabilities
}

// NewHyperQueueScheduler creates a scheduler invoking `hq` from the target PATH
func NewHyperQueueScheduler() *HyperQueueScheduler {
	s, _ := NewHyperQueueSchedulerWithOptions(HyperQueueOptions{})
	return s
}

// NewHyperQueueSchedulerWithOptions resolves version capabilities once and
// returns a configured scheduler. It fails only on an unparsable version.
func NewHyperQueueSchedulerWithOptions(opts HyperQueueOptions) (*HyperQueueScheduler, error) {
	bin := strings.TrimSpace(opts.Binary)
	if bin == "" {
		bin = DefaultBinary
	}
	filter := strings.TrimSpace(opts.CompactFilter)
	if filter == "" {
		filter = DefaultCompactFilter
	}
	caps, err := ResolveCapabilities(opts.Version)
	if err != nil {
		return nil, err
	}
	return &HyperQueueScheduler{
		hqBin:         bin,
		compactFilter: filter,
		caps:          caps,
	}, nil
}

// GetInfo returns information about the HyperQueue scheduler
func (s *HyperQueueScheduler) GetInfo() *SchedulerInfo {
	return &SchedulerInfo{
		Type:         SchedulerName,
		Binary:       s.hqBin,
		Capabilities: s.caps,
	}
}

// Capabilities returns the version dependent flags resolved at construction.
func (s *HyperQueueScheduler) Capabilities() Capabilities {
	return s.caps
}

// SubmitScriptHeader renders the #HQ directives for tmpl.
//
// Order is fixed: name, stdout, stderr, time-request, time-limit, priority,
// cpus, memory. A wallclock limit produces both --time-request (only start
// on a worker that still has that much allocation time left) and
// --time-limit (kill the task once it runs that long).
func (s *HyperQueueScheduler) SubmitScriptHeader(tmpl *JobTemplate) string {
	var hqOptions []string

	if tmpl.JobName != "" {
		hqOptions = append(hqOptions, fmt.Sprintf(`--name="%s"`, strings.ReplaceAll(tmpl.JobName, `"`, `\"`)))
	}

	if tmpl.SchedOutputPath != "" {
		hqOptions = append(hqOptions, fmt.Sprintf("--stdout=%s", tmpl.SchedOutputPath))
	}

	if tmpl.SchedErrorPath != "" {
		hqOptions = append(hqOptions, fmt.Sprintf("--stderr=%s", tmpl.SchedErrorPath))
	}

	if tmpl.MaxWallclockSeconds > 0 {
		hqOptions = append(hqOptions,
			fmt.Sprintf("--time-request=%ds", tmpl.MaxWallclockSeconds),
			fmt.Sprintf("--time-limit=%ds", tmpl.MaxWallclockSeconds))
	}

	if tmpl.Priority != 0 {
		hqOptions = append(hqOptions, fmt.Sprintf("--priority=%d", tmpl.Priority))
	}

	if res := tmpl.Resources; res != nil {
		hqOptions = append(hqOptions, fmt.Sprintf("--cpus=%d", res.NumCpus()))
		if mem, ok := res.Memory(); ok {
			hqOptions = append(hqOptions, fmt.Sprintf("--resource mem=%d", mem))
		}
	}

	lines := make([]string, len(hqOptions))
	for i, opt := range hqOptions {
		lines[i] = DirectivePrefix + " " + opt
	}
	return strings.Join(lines, "\n")
}

// SubmitCommand returns the command submitting a script; hq reads the
// #HQ directives from the script itself.
func (s *HyperQueueScheduler) SubmitCommand(scriptPath string) string {
	return fmt.Sprintf("%s submit --output-mode=json %s", s.hqBin, scriptPath)
}

// ParseSubmitOutput extracts the job id from `hq submit --output-mode=json`.
func (s *HyperQueueScheduler) ParseSubmitOutput(retval int, stdout, stderr string) (string, error) {
	if retval != 0 {
		utils.PrintError("Error in ParseSubmitOutput: retval=%d; stdout=%s; stderr=%s", retval, stdout, stderr)
		return "", NewSchedulerError("submit", retval, stdout, stderr, ErrNonZeroExit)
	}

	if strings.TrimSpace(stderr) != "" {
		utils.PrintWarning("in ParseSubmitOutput: there was some text in stderr: %s", strings.TrimSpace(stderr))
	}

	var resp struct {
		ID *JobID `json:"id"`
	}
	if err := json.Unmarshal(bytes.TrimSpace([]byte(stdout)), &resp); err != nil || resp.ID == nil {
		utils.PrintError("in ParseSubmitOutput: unable to find the job id: %s", stdout)
		return "", NewSchedulerError("submit", retval, stdout, stderr, ErrJobIDParseFailed)
	}

	return resp.ID.String(), nil
}

// JobListCommand returns the command listing waiting and running jobs.
//
// `hq job list` cannot filter on job ids, so jobIDs is accepted and ignored;
// callers filter the result. Filtering by user is not expressible and fails.
func (s *HyperQueueScheduler) JobListCommand(jobIDs []string, user string) (string, error) {
	if user != "" {
		return "", NewFeatureNotAvailableError("query by user", ErrQueryByUser)
	}
	if len(jobIDs) > 0 {
		utils.PrintDebug("hq job list cannot filter by id, ignoring %d requested ids", len(jobIDs))
	}
	return fmt.Sprintf("%s job list --filter waiting,running --output-mode=json", s.hqBin), nil
}

// hqJobSummary is one element of `hq job list --output-mode=json`.
type hqJobSummary struct {
	ID        *JobID         `json:"id"`
	Name      string         `json:"name"`
	TaskCount *int           `json:"task_count"`
	TaskStats map[string]int `json:"task_stats"`
}

// ParseJobListOutput parses `hq job list --output-mode=json`.
//
// Every job carries exactly one task, so an entry must show one active state
// and a task count of 1. Entries breaking that are logged and kept as
// UNDETERMINED with Inconsistent set: hq still lists them, so they are not
// finished. Entries without a readable id are logged and dropped. An active
// state missing from the state table fails the whole call.
func (s *HyperQueueScheduler) ParseJobListOutput(retval int, stdout, stderr string) ([]JobInfo, error) {
	if retval != 0 {
		return nil, NewSchedulerError("job list", retval, stdout, stderr, ErrNonZeroExit)
	}

	if strings.TrimSpace(stderr) != "" {
		utils.PrintWarning("hq job list returned exit code 0 (ParseJobListOutput) but non-empty stderr='%s'", strings.TrimSpace(stderr))
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace([]byte(stdout)), &entries); err != nil {
		return nil, NewSchedulerError("job list", retval, stdout, stderr,
			fmt.Errorf("%w: expected a JSON array: %v", ErrMalformedOutput, err))
	}

	jobs := make([]JobInfo, 0, len(entries))
	for i, raw := range entries {
		var entry hqJobSummary
		if err := json.Unmarshal(raw, &entry); err != nil {
			var idOnly struct {
				ID *JobID `json:"id"`
			}
			if json.Unmarshal(raw, &idOnly) != nil || idOnly.ID == nil {
				utils.PrintError("hq job list entry %d skipped: %v (%s)", i, err, string(raw))
				continue
			}
			utils.PrintError("hq job %s has an unreadable record: %v (%s)", idOnly.ID.String(), err, string(raw))
			jobs = append(jobs, JobInfo{JobID: idOnly.ID.String(), State: JobStateUndetermined, Inconsistent: true})
			continue
		}
		if entry.ID == nil {
			utils.PrintError("hq job list entry %d skipped: no job id (%s)", i, string(raw))
			continue
		}

		active := activeStates(entry.TaskStats)
		for _, token := range active {
			if _, err := MapJobState(token); err != nil {
				return nil, NewSchedulerError("job list", retval, stdout, stderr, err)
			}
		}

		if len(active) != 1 || entry.TaskCount == nil || *entry.TaskCount != 1 {
			taskCount := -1
			if entry.TaskCount != nil {
				taskCount = *entry.TaskCount
			}
			utils.PrintError("hq job %s is inconsistent: expected one task in one state, got task_count=%d states=%v",
				entry.ID.String(), taskCount, active)
			jobs = append(jobs, JobInfo{
				JobID:        entry.ID.String(),
				Title:        entry.Name,
				State:        JobStateUndetermined,
				RawState:     strings.ToUpper(strings.Join(active, ",")),
				Inconsistent: true,
			})
			continue
		}

		state, _ := MapJobState(active[0])
		jobs = append(jobs, JobInfo{
			JobID:    entry.ID.String(),
			Title:    entry.Name,
			State:    state,
			RawState: strings.ToUpper(active[0]),
		})
	}

	return jobs, nil
}

// activeStates returns the state names with a non-zero task count, sorted.
func activeStates(stats map[string]int) []string {
	var active []string
	for name, count := range stats {
		if count != 0 {
			active = append(active, name)
		}
	}
	sort.Strings(active)
	return active
}

// KillCommand returns the command cancelling jobID.
func (s *HyperQueueScheduler) KillCommand(jobID string) string {
	utils.PrintDebug("killing job %s", jobID)
	return fmt.Sprintf("%s job cancel %s", s.hqBin, utils.ShellQuote(jobID))
}

// ParseKillOutput reports whether the cancel went through. Failures are
// logged, not raised: the job may simply have finished already.
func (s *HyperQueueScheduler) ParseKillOutput(retval int, stdout, stderr string) bool {
	if retval != 0 {
		utils.PrintError("Error in ParseKillOutput: retval=%d; stdout=%s; stderr=%s", retval, stdout, stderr)
		return false
	}

	// hq may exit 0 and still report the failure on stderr.
	if strings.Contains(stderr, "ERROR") {
		utils.PrintWarning("in ParseKillOutput: there was an error when trying to cancel the job: %s", strings.TrimSpace(stderr))
		return false
	}

	return true
}

// DetailedJobInfoCommand returns the command fetching `hq job info` as one JSON line.
func (s *HyperQueueScheduler) DetailedJobInfoCommand(jobID string) string {
	return fmt.Sprintf("%s job info %s --output-mode json | %s", s.hqBin, utils.ShellQuote(jobID), s.compactFilter)
}

// hqTaskState accepts a bare state name or an object carrying it.
type hqTaskState string

func (t *hqTaskState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = hqTaskState(s)
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unable to parse '%s' as a task state", string(data))
	}
	for _, key := range []string{"state", "type", "status"} {
		if raw, ok := obj[key]; ok {
			if err := json.Unmarshal(raw, &s); err == nil {
				*t = hqTaskState(s)
				return nil
			}
		}
	}
	return fmt.Errorf("task state object without a state name: %s", string(data))
}

type hqTaskDetail struct {
	ID    *JobID      `json:"id"`
	State hqTaskState `json:"state"`
	Error string      `json:"error"`
}

type hqJobDetail struct {
	Info  hqJobSummary   `json:"info"`
	Tasks []hqTaskDetail `json:"tasks"`
}

// ParseDetailedJobInfoOutput keeps the raw result of the detailed info command
// and decodes the per-task states and errors when it can. It never fails:
// detailed info is diagnostic and a decode problem is recorded in DecodeErr.
func (s *HyperQueueScheduler) ParseDetailedJobInfoOutput(jobID string, retval int, stdout, stderr string) *DetailedJobInfo {
	info := &DetailedJobInfo{
		JobID:  jobID,
		Retval: retval,
		Stdout: stdout,
		Stderr: stderr,
	}

	if retval != 0 {
		utils.PrintWarning("hq job info %s returned exit code %d: %s", jobID, retval, strings.TrimSpace(stderr))
		info.DecodeErr = ErrNonZeroExit.Error()
		return info
	}

	data := bytes.TrimSpace([]byte(stdout))
	var details []hqJobDetail
	if err := json.Unmarshal(data, &details); err != nil {
		var single hqJobDetail
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			info.DecodeErr = fmt.Sprintf("%v: %v", ErrMalformedOutput, err)
			return info
		}
		details = []hqJobDetail{single}
	}

	for _, d := range details {
		if info.Name == "" {
			info.Name = d.Info.Name
		}
		for _, t := range d.Tasks {
			td := TaskDetail{State: string(t.State), Error: t.Error}
			if t.ID != nil {
				td.ID = t.ID.String()
			}
			info.Tasks = append(info.Tasks, td)
		}
	}
	info.Decoded = true
	return info
}
