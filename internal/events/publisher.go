// Package events publishes job state transitions seen by `watch`.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Justype/hqadapter/internal/scheduler"
)

// JobEvent describes one job state transition.
type JobEvent struct {
	ID    string    `json:"id"`     // Unique event id
	JobID string    `json:"job_id"` // hq job id
	Title string    `json:"title,omitempty"`
	From  string    `json:"from"` // Previous state, empty for a newly seen job
	To    string    `json:"to"`
	Cause string    `json:"cause,omitempty"` // Failure cause from the detailed job info
	Time  time.Time `json:"time"`
}

// NewJobEvent builds an event with a fresh id.
func NewJobEvent(jobID, title string, from, to scheduler.JobState, seen bool, at time.Time) JobEvent {
	ev := JobEvent{
		ID:    uuid.New().String(),
		JobID: jobID,
		Title: title,
		To:    to.String(),
		Time:  at.UTC(),
	}
	if seen {
		ev.From = from.String()
	}
	return ev
}

// Marshal encodes the event as JSON.
func (e JobEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers job events.
type Publisher interface {
	Publish(ctx context.Context, ev JobEvent) error
	Close() error
}

// Multi fans every event out to all publishers in order. The first error
// stops delivery of that event.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev JobEvent) error {
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every publisher and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
