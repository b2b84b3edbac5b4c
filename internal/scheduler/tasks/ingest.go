package tasks

import (
	"context"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/pipeline"
	"github.com/showsift/showsift/internal/scheduler"
)

const IngestTaskID = "feed-ingest"

func ingestCronExpr(cfg *config.SchedulerConfig) string {
	if cfg.IngestCron == "" {
		return "0 */6 * * *"
	}
	return cfg.IngestCron
}

// RegisterIngestTask registers the periodic feed ingest. Resolution is
// skipped here; the resolve sweep runs on its own staggered schedule.
func RegisterIngestTask(sched *scheduler.Scheduler, pipe *pipeline.Service, cfg *config.SchedulerConfig) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          IngestTaskID,
		Name:        "Feed Ingest",
		Description: "Parse the scraped feed, select torrents and update the catalog",
		Cron:        ingestCronExpr(cfg),
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			_, err := pipe.Run(ctx, pipeline.RunOptions{
				TriggeredBy: "scheduler",
				SkipResolve: true,
			})
			return err
		},
	})
}
