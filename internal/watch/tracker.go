// Package watch polls the job list and reports state transitions.
package watch

import (
	"slices"
	"time"

	"github.com/Justype/hqadapter/internal/scheduler"
)

// Record is the last known state of one job.
type Record struct {
	Job       scheduler.JobInfo
	FirstSeen time.Time
	LastSeen  time.Time
}

// Transition is a state change found by Apply.
type Transition struct {
	JobID string
	Title string
	From  scheduler.JobState
	To    scheduler.JobState
	New   bool // First time the job was seen; From is meaningless
}

// Tracker remembers job states between polls. It is not safe for
// concurrent use.
type Tracker struct {
	records map[string]Record
	order   []string
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]Record)}
}

// Seed registers jobs to follow before the first poll, so a job that has
// already left the active list is still reported as done.
func (t *Tracker) Seed(jobIDs []string, now time.Time) {
	for _, id := range jobIDs {
		if _, ok := t.records[id]; ok {
			continue
		}
		t.records[id] = Record{
			Job:       scheduler.JobInfo{JobID: id, State: scheduler.JobStateUndetermined},
			FirstSeen: now,
		}
		t.order = append(t.order, id)
	}
}

// Apply merges a job list snapshot and returns the transitions it implies.
// The list only holds waiting and running jobs, so a known job missing
// from it has finished one way or another and becomes DONE. An inconsistent
// entry is still listed by hq: the job keeps its last known state.
func (t *Tracker) Apply(jobs []scheduler.JobInfo, now time.Time) []Transition {
	var changes []Transition
	seen := make(map[string]bool, len(jobs))

	for _, incoming := range jobs {
		seen[incoming.JobID] = true

		rec, exists := t.records[incoming.JobID]
		if incoming.Inconsistent {
			if !exists {
				rec = Record{
					Job:       scheduler.JobInfo{JobID: incoming.JobID, State: scheduler.JobStateUndetermined},
					FirstSeen: now,
				}
				t.order = append(t.order, incoming.JobID)
			}
			if rec.Job.Title == "" {
				rec.Job.Title = incoming.Title
			}
			rec.LastSeen = now
			t.records[incoming.JobID] = rec
			continue
		}
		if !exists {
			rec = Record{FirstSeen: now}
			t.order = append(t.order, incoming.JobID)
			changes = append(changes, Transition{
				JobID: incoming.JobID, Title: incoming.Title, To: incoming.State, New: true,
			})
		} else if rec.Job.State != incoming.State {
			changes = append(changes, Transition{
				JobID: incoming.JobID, Title: incoming.Title,
				From: rec.Job.State, To: incoming.State,
				New: rec.Job.State == scheduler.JobStateUndetermined,
			})
		}

		rec.Job = incoming
		rec.LastSeen = now
		t.records[incoming.JobID] = rec
	}

	for _, id := range t.order {
		if seen[id] {
			continue
		}
		rec := t.records[id]
		if rec.Job.State.IsTerminal() {
			continue
		}
		changes = append(changes, Transition{
			JobID: id, Title: rec.Job.Title,
			From: rec.Job.State, To: scheduler.JobStateDone,
			New: rec.Job.State == scheduler.JobStateUndetermined,
		})
		rec.Job.State = scheduler.JobStateDone
		rec.LastSeen = now
		t.records[id] = rec
	}

	slices.SortStableFunc(changes, func(a, b Transition) int { return scheduler.CompareJobIDs(a.JobID, b.JobID) })
	return changes
}

// Get returns the record for jobID.
func (t *Tracker) Get(jobID string) (Record, bool) {
	rec, ok := t.records[jobID]
	return rec, ok
}

// Records returns all records in first-seen order.
func (t *Tracker) Records() []Record {
	out := make([]Record, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.records[id])
	}
	return out
}

// AllTerminal reports whether every tracked job is DONE. False when nothing is tracked.
func (t *Tracker) AllTerminal() bool {
	if len(t.order) == 0 {
		return false
	}
	for _, id := range t.order {
		if !t.records[id].Job.State.IsTerminal() {
			return false
		}
	}
	return true
}
