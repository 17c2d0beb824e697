package scheduler

import (
	"context"

	"github.com/cristianortiz/bidstream/internal/shared/logger"
	"github.com/robfig/cron/v3"
)

var log = logger.GetLogger()

// Runner wraps robfig/cron for the periodic jobs of the engine (lifecycle
// sweep). Jobs receive the base context so shutdown cancels them.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		baseCtx: baseCtx,
	}
}

// Add schedules job with a cron spec (seconds granularity, "@every 1s" works).
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	log.Info("scheduler started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}
