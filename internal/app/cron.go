package app

import (
	"context"
	"fmt"

	"github.com/minpic/core/internal/config"
	pkgcron "github.com/minpic/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, svcs *services, cfg *config.AppConfig, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	interval := cfg.ExpirySweepInterval()
	if interval <= 0 {
		cronLogger.Info("expiry sweep disabled")
		return nil
	}
	return sched.Register(pkgcron.Job{
		Name:        "expire-files",
		Description: "Delete files whose expiry has passed",
		Interval:    interval,
		Fn: func(ctx context.Context) error {
			n, err := svcs.files.DeleteExpired(ctx)
			if err != nil {
				cronLogger.Warn("expiry sweep failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("expiry sweep removed %d files", n))
			}
			return nil
		},
	})
}
