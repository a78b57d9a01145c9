package scheduler

import "strings"

// JobState is the coarse state a workflow engine tracks for a remote job.
type JobState int

const (
	JobStateUndetermined JobState = iota
	JobStateQueued
	JobStateRunning
	JobStateDone
)

func (s JobState) String() string {
	switch s {
	case JobStateQueued:
		return "QUEUED"
	case JobStateRunning:
		return "RUNNING"
	case JobStateDone:
		return "DONE"
	default:
		return "UNDETERMINED"
	}
}

// IsTerminal reports whether no further transitions are expected.
func (s JobState) IsTerminal() bool {
	return s == JobStateDone
}

// hqStateMap maps every HyperQueue job/task state to a JobState.
// FAILED, CANCELED and FINISHED all collapse into DONE; use the detailed job
// info to tell them apart.
var hqStateMap = map[string]JobState{
	"WAITING":  JobStateQueued,
	"RUNNING":  JobStateRunning,
	"FAILED":   JobStateDone,
	"CANCELED": JobStateDone,
	"FINISHED": JobStateDone,
}

// MapJobState converts a HyperQueue state token (any case) to a JobState.
// Unknown tokens are a ParseError, never a default.
func MapJobState(token string) (JobState, error) {
	key := strings.ToUpper(strings.TrimSpace(token))
	if state, ok := hqStateMap[key]; ok {
		return state, nil
	}
	pe := NewParseError(SchedulerName, 0, token, "unknown job state")
	pe.Err = ErrUnknownState
	return JobStateUndetermined, pe
}

// KnownStates returns the remote state tokens understood by MapJobState.
func KnownStates() []string {
	return []string{"WAITING", "RUNNING", "FAILED", "CANCELED", "FINISHED"}
}
