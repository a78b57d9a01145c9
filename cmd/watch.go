package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/events"
	"github.com/Justype/hqadapter/internal/journal"
	"github.com/Justype/hqadapter/internal/utils"
	"github.com/Justype/hqadapter/internal/watch"
)

var (
	watchInterval string
	watchNatsURL  string
	watchMine     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [job-id...]",
	Short: "Follow job state changes and publish them",
	Long: `Poll hq periodically and report every job state change.

Without job ids every active job is followed until interrupted. With job ids,
or with --mine for the jobs in the local journal, watch returns once all of
them are done. A job that leaves hq's waiting/running list is reported DONE,
with the failure cause from hq job info when there is one.

Events are printed and, when nats.url is set, published as JSON on
nats.subject.`,
	Example: `  hqadapter watch
  hqadapter watch 12 13 --interval 10s
  hqadapter watch --mine --nats nats://localhost:4222`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInterval, "interval", "i", "", "Polling interval (default: watch.interval)")
	watchCmd.Flags().StringVar(&watchNatsURL, "nats", "", "NATS server URL (default: nats.url)")
	watchCmd.Flags().BoolVar(&watchMine, "mine", false, "Follow the unfinished jobs of the local journal")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := config.Global.WatchInterval
	if watchInterval != "" {
		d, err := utils.ParseDuration(watchInterval)
		if err != nil {
			return err
		}
		interval = d
	}

	j, err := openJournal()
	if err != nil {
		return err
	}

	jobIDs := args
	if watchMine && len(jobIDs) == 0 {
		jobIDs, err = j.ActiveIDs()
		if err != nil {
			return err
		}
		if len(jobIDs) == 0 {
			utils.PrintNote("No unfinished jobs in the journal")
			return nil
		}
	}

	pub, err := buildPublisher(j)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			utils.PrintWarning("Closing publishers: %v", err)
		}
	}()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if len(jobIDs) > 0 {
		utils.PrintMessage("Watching %d job(s) every %s", len(jobIDs), interval)
	} else {
		utils.PrintMessage("Watching all active jobs every %s", interval)
	}
	err = watch.New(s.adapter, pub, interval, jobIDs).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildPublisher always records into the journal and prints, and adds NATS
// when a server URL is configured.
func buildPublisher(j *journal.Journal) (events.Multi, error) {
	pubs := events.Multi{journal.Publisher{J: j}, events.LogPublisher{}}

	natsCfg := config.Global.Nats
	if watchNatsURL != "" {
		natsCfg.URL = watchNatsURL
	}
	if natsCfg.URL != "" {
		np, err := events.NewNatsPublisher(natsCfg)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, np)
		utils.PrintDebug("Publishing events on %s", natsCfg.Subject)
	}
	return pubs, nil
}
