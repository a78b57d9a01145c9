// Package journal keeps a local record of jobs submitted through hqadapter,
// so later commands can follow them without the user passing job ids.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Justype/hqadapter/internal/events"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

// ErrNotFound is returned for job ids the journal does not know.
var ErrNotFound = errors.New("job not found in journal")

const lockName = ".lock"

// Entry is one submitted job
type Entry struct {
	JobID       string    `json:"job_id"`
	Name        string    `json:"name,omitempty"`
	UUID        string    `json:"uuid,omitempty"`
	Host        string    `json:"host,omitempty"`     // Empty for local submissions
	WorkDir     string    `json:"work_dir,omitempty"` // Directory the job was submitted from
	Script      string    `json:"script,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	State       string    `json:"state,omitempty"` // Last state seen by watch
	Cause       string    `json:"cause,omitempty"` // Failure cause reported on DONE
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Done reports whether the job has been seen finishing.
func (e Entry) Done() bool {
	return e.State == scheduler.JobStateDone.String()
}

// Journal stores one JSON file per job under dir.
type Journal struct {
	dir string
}

// Open returns the journal rooted at dir, creating the directory.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		return nil, fmt.Errorf("unable to determine journal directory")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) entryPath(jobID string) (string, error) {
	if !scheduler.ValidJobID(jobID) {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	return filepath.Join(j.dir, jobID+".json"), nil
}

func (j *Journal) lock(write bool) (*lock, error) {
	return acquireLock(filepath.Join(j.dir, lockName), write)
}

// Record stores e, replacing any entry with the same job id.
func (j *Journal) Record(e Entry) error {
	l, err := j.lock(true)
	if err != nil {
		return err
	}
	defer l.Close()
	return j.write(e)
}

func (j *Journal) write(e Entry) error {
	path, err := j.entryPath(e.JobID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if err := os.WriteFile(path, data, utils.PermFile); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	utils.PrintDebug("[JOURNAL] Saved job %s to %s", e.JobID, path)
	return nil
}

// Get loads the entry of one job.
func (j *Journal) Get(jobID string) (*Entry, error) {
	l, err := j.lock(false)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return j.read(jobID)
}

func (j *Journal) read(jobID string) (*Entry, error) {
	path, err := j.entryPath(jobID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to read journal entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry %s: %w", path, err)
	}
	return &e, nil
}

// List returns all entries ordered by submission time. Unreadable files
// are skipped with a debug message.
func (j *Journal) List() ([]Entry, error) {
	l, err := j.lock(false)
	if err != nil {
		return nil, err
	}
	defer l.Close()

	ids, err := j.ids()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e, err := j.read(id)
		if err != nil {
			utils.PrintDebug("[JOURNAL] Skipping %s: %v", id, err)
			continue
		}
		entries = append(entries, *e)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if !entries[a].SubmittedAt.Equal(entries[b].SubmittedAt) {
			return entries[a].SubmittedAt.Before(entries[b].SubmittedAt)
		}
		return scheduler.CompareJobIDs(entries[a].JobID, entries[b].JobID) < 0
	})
	return entries, nil
}

// ActiveIDs returns the ids of entries not yet seen finishing.
func (j *Journal) ActiveIDs() ([]string, error) {
	entries, err := j.List()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.Done() {
			ids = append(ids, e.JobID)
		}
	}
	return ids, nil
}

func (j *Journal) ids() ([]string, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}
	var ids []string
	for _, entry := range dirEntries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

// UpdateState stores the latest state (and failure cause) of a known job.
func (j *Journal) UpdateState(jobID, state, cause string, at time.Time) error {
	l, err := j.lock(true)
	if err != nil {
		return err
	}
	defer l.Close()

	e, err := j.read(jobID)
	if err != nil {
		return err
	}
	e.State = state
	if cause != "" {
		e.Cause = cause
	}
	e.UpdatedAt = at
	return j.write(*e)
}

// Remove deletes the entry of one job. Removing an unknown job is not an error.
func (j *Journal) Remove(jobID string) error {
	l, err := j.lock(true)
	if err != nil {
		return err
	}
	defer l.Close()

	path, err := j.entryPath(jobID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove journal entry: %w", err)
	}
	utils.PrintDebug("[JOURNAL] Deleted job %s", jobID)
	return nil
}

// PruneDone removes every entry seen finishing and returns how many went.
func (j *Journal) PruneDone() (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.Done() {
			continue
		}
		if err := j.Remove(e.JobID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Publisher records watch events into the journal. Events for jobs the
// journal does not know are ignored.
type Publisher struct {
	J *Journal
}

var _ events.Publisher = Publisher{}

func (p Publisher) Publish(ctx context.Context, ev events.JobEvent) error {
	err := p.J.UpdateState(ev.JobID, ev.To, ev.Cause, ev.Time)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (Publisher) Close() error { return nil }
