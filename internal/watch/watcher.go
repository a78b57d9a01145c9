package watch

import (
	"context"
	"time"

	"github.com/Justype/hqadapter/internal/events"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 30 * time.Second

// Source is what the watcher needs from the adapter.
type Source interface {
	Query(ctx context.Context, jobIDs []string, user string) ([]scheduler.JobInfo, error)
	DetailedInfo(ctx context.Context, jobID string) (*scheduler.DetailedJobInfo, error)
}

// Watcher polls a Source and publishes every transition.
type Watcher struct {
	src      Source
	pub      events.Publisher
	tracker  *Tracker
	interval time.Duration
	jobIDs   []string
	now      func() time.Time
}

// New returns a Watcher. With jobIDs it follows only those jobs and Run
// returns once all of them are done; without, it follows every active job
// until ctx is cancelled.
func New(src Source, pub events.Publisher, interval time.Duration, jobIDs []string) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w := &Watcher{
		src:      src,
		pub:      pub,
		tracker:  NewTracker(),
		interval: interval,
		jobIDs:   jobIDs,
		now:      time.Now,
	}
	w.tracker.Seed(jobIDs, w.now())
	return w
}

// Tracker exposes the job states collected so far.
func (w *Watcher) Tracker() *Tracker {
	return w.tracker
}

// Poll queries once and publishes the resulting transitions. Jobs that
// reach DONE get their failure cause from the detailed job info, if any.
func (w *Watcher) Poll(ctx context.Context) ([]events.JobEvent, error) {
	jobs, err := w.src.Query(ctx, w.jobIDs, "")
	if err != nil {
		return nil, err
	}

	now := w.now()
	var published []events.JobEvent
	for _, tr := range w.tracker.Apply(jobs, now) {
		ev := events.NewJobEvent(tr.JobID, tr.Title, tr.From, tr.To, !tr.New, now)
		if tr.To == scheduler.JobStateDone {
			if info, err := w.src.DetailedInfo(ctx, tr.JobID); err != nil {
				utils.PrintWarning("could not fetch details of job %s: %v", tr.JobID, err)
			} else {
				ev.Cause = info.FailureCause()
				if ev.Title == "" {
					ev.Title = info.Name
				}
			}
		}
		if err := w.pub.Publish(ctx, ev); err != nil {
			return published, err
		}
		published = append(published, ev)
	}
	return published, nil
}

// Run polls every interval until ctx is done or, when following explicit
// jobs, all of them are done. A failed poll is logged and retried on the
// next tick.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			utils.PrintWarning("poll failed: %v", err)
		}
		if len(w.jobIDs) > 0 && w.tracker.AllTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
