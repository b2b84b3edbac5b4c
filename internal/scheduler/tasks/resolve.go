package tasks

import (
	"context"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/resolver"
	"github.com/showsift/showsift/internal/scheduler"
)

const ResolveTaskID = "resolve-sweep"

func resolveCronExpr(cfg *config.SchedulerConfig) string {
	if cfg.ResolveCron == "" {
		return "30 */6 * * *"
	}
	return cfg.ResolveCron
}

// RegisterResolveTask registers the metadata resolution sweep. It works
// through the unresolved backlog and then retries season matching for
// any torrents that arrived before their series was resolved.
func RegisterResolveTask(sched *scheduler.Scheduler, res *resolver.Service, cfg *config.SchedulerConfig) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          ResolveTaskID,
		Name:        "Resolve Sweep",
		Description: "Resolve unmatched series against metadata providers and relink seasons",
		Cron:        resolveCronExpr(cfg),
		Func: func(ctx context.Context) error {
			if _, err := res.ResolveBacklog(ctx, false); err != nil {
				return err
			}
			_, err := res.MatchAllSeasons(ctx)
			return err
		},
	})
}
