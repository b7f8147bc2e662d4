package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	HourlyPruneSpec       = "0 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
)

// Pruner drops sessions that were idle past their TTL.
type Pruner interface {
	Prune(now time.Time) int
}

type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	pruner Pruner
	now    func() time.Time
	log    *slog.Logger
}

func New(ctx context.Context, pruner Pruner, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		pruner: pruner,
		now:    time.Now,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(HourlyPruneSpec, s.pruneSessions); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop halts the cron and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneSessions() {
	select {
	case <-s.ctx.Done():
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", s.ctx.Err())
		return
	default:
	}

	started := s.now()
	pruned := s.pruner.Prune(started)

	s.log.InfoContext(s.ctx, "Sessions are pruned",
		"pruned", pruned,
		"duration", s.now().Sub(started))
}
