package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/adapter"
	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/hq"
	"github.com/Justype/hqadapter/internal/journal"
	"github.com/Justype/hqadapter/internal/scheduler"
	"github.com/Justype/hqadapter/internal/transport"
	"github.com/Justype/hqadapter/internal/utils"
)

// session bundles everything a command needs to talk to hq.
type session struct {
	sched     *scheduler.HyperQueueScheduler
	transport transport.Transport
	adapter   *adapter.Adapter
	client    *hq.Client
}

// openSession builds the scheduler, transport, adapter and hq client from
// config.Global. SSH connections are opened lazily on the first command.
func openSession() (*session, error) {
	sched, err := scheduler.NewHyperQueueSchedulerWithOptions(config.Global.SchedulerOptions())
	if err != nil {
		return nil, err
	}
	t, err := transport.New(config.Global.Transport)
	if err != nil {
		return nil, err
	}
	utils.PrintDebug("Using %s transport", config.Global.Transport.Type)
	return &session{
		sched:     sched,
		transport: t,
		adapter:   adapter.New(sched, t),
		client:    hq.NewClient(t, config.Global.HQBin, sched.Capabilities()),
	}, nil
}

func (s *session) Close() {
	if err := s.transport.Close(); err != nil {
		utils.PrintDebug("Closing transport: %v", err)
	}
}

// signalContext returns the command context cancelled on Ctrl-C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openJournal opens the local record of submitted jobs.
func openJournal() (*journal.Journal, error) {
	return journal.Open(filepath.Join(config.GetUserStateDir(), "jobs"))
}

// loadTemplate reads a job template, prints its deprecation notices and
// applies the resource flags of the command.
func loadTemplate(path string, o config.ResourceOverrides) (*scheduler.JobTemplate, error) {
	tmpl, notices, err := config.LoadJobTemplate(path)
	for _, n := range notices {
		utils.PrintWarning("%s", n)
	}
	if err != nil {
		return nil, err
	}
	if err := o.Apply(tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// addResourceFlags registers --cpus and --memory on commands taking a template.
func addResourceFlags(cmd *cobra.Command, o *config.ResourceOverrides) {
	cmd.Flags().IntVar(&o.Cpus, "cpus", 0, "Override the template's num_cpus")
	cmd.Flags().StringVar(&o.Memory, "memory", "", "Override the template's memory (e.g. 4G, 500M)")
}
