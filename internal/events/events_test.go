package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/utils"
)

func TestNewJobEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	ev := NewJobEvent("7", "pw", scheduler.JobStateQueued, scheduler.JobStateRunning, true, at)
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", ev.ID, err)
	}
	if ev.From != "QUEUED" || ev.To != "RUNNING" {
		t.Errorf("transition = %s -> %s", ev.From, ev.To)
	}
	if !ev.Time.Equal(at) || ev.Time.Location() != time.UTC {
		t.Errorf("Time = %v; want %v in UTC", ev.Time, at)
	}

	first := NewJobEvent("8", "", scheduler.JobStateUndetermined, scheduler.JobStateQueued, false, at)
	if first.From != "" {
		t.Errorf("From = %q for a new job; want empty", first.From)
	}
	if first.ID == ev.ID {
		t.Error("two events share an id")
	}
}

func TestJobEventMarshal(t *testing.T) {
	ev := NewJobEvent("7", "pw", scheduler.JobStateRunning, scheduler.JobStateDone, true, time.Unix(0, 0))
	ev.Cause = "exit code 1"
	data, err := ev.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{"job_id": "7", "title": "pw", "from": "RUNNING", "to": "DONE", "cause": "exit code 1"} {
		if m[key] != want {
			t.Errorf("%s = %v; want %q", key, m[key], want)
		}
	}
}

func TestLogPublisher(t *testing.T) {
	var out, errOut bytes.Buffer
	defer utils.SetOutput(&out, &errOut)()

	var p Publisher = LogPublisher{}
	ev := NewJobEvent("3", "bash", scheduler.JobStateUndetermined, scheduler.JobStateQueued, false, time.Now())
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "NEW -> QUEUED") {
		t.Errorf("output = %q", out.String())
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewNatsPublisherUnreachable(t *testing.T) {
	var out, errOut bytes.Buffer
	defer utils.SetOutput(&out, &errOut)()

	if _, err := NewNatsPublisher(NatsConfig{URL: "nats://127.0.0.1:1"}); err == nil {
		t.Error("NewNatsPublisher() to a closed port succeeded")
	}
}

type countingPublisher struct {
	n      int
	err    error
	closed bool
}

func (c *countingPublisher) Publish(ctx context.Context, ev JobEvent) error {
	c.n++
	return c.err
}

func (c *countingPublisher) Close() error {
	c.closed = true
	return c.err
}

func TestMulti(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	m := Multi{a, b}
	ev := NewJobEvent("1", "", scheduler.JobStateQueued, scheduler.JobStateRunning, true, time.Now())
	if err := m.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if a.n != 1 || b.n != 1 {
		t.Errorf("deliveries = %d, %d; want 1, 1", a.n, b.n)
	}

	boom := errors.New("boom")
	failing, after := &countingPublisher{err: boom}, &countingPublisher{}
	m = Multi{failing, after}
	if err := m.Publish(context.Background(), ev); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v; want boom", err)
	}
	if after.n != 0 {
		t.Error("publisher after a failing one still received the event")
	}
	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close() error = %v; want boom", err)
	}
	if !after.closed {
		t.Error("Close() stopped at the first error")
	}
}
