package tasks

import (
	"context"

	"github.com/showsift/showsift/internal/metadata/tmdb"
	"github.com/showsift/showsift/internal/scheduler"
)

const CacheCleanupTaskID = "metadata-cache-cleanup"

// RegisterCacheCleanupTask registers the daily sweep that drops expired
// entries from the TMDB response cache. A nil cache means TMDB is not
// configured and the task is not registered.
func RegisterCacheCleanupTask(sched *scheduler.Scheduler, cache *tmdb.Cache) error {
	if cache == nil {
		return nil
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CacheCleanupTaskID,
		Name:        "Metadata Cache Cleanup",
		Description: "Remove expired TMDB responses from the on-disk cache",
		Cron:        "0 4 * * *",
		Func: func(ctx context.Context) error {
			_, err := cache.CleanupExpired()
			return err
		},
	})
}
