package events

import (
	"context"

	"github.com/Justype/hqadapter/internal/utils"
)

// LogPublisher prints events to the console. It is used when no NATS
// server is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev JobEvent) error {
	from := ev.From
	if from == "" {
		from = "NEW"
	}
	utils.PrintMessage("job %s %s: %s -> %s", utils.StyleNumber(ev.JobID), utils.StyleName(ev.Title), from, ev.To)
	if ev.Cause != "" {
		utils.PrintWarning("job %s: %s", ev.JobID, ev.Cause)
	}
	return nil
}

func (LogPublisher) Close() error { return nil }
