package emergency

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"safecircle/apperr"
)

const (
	DefaultSweepSchedule = "@every 1m"
	sweepTimeout         = 30 * time.Second
)

// Sweeper periodically finds rooms that are still open although their alert
// was resolved, e.g. after a restart dropped the close timer, and hands them
// back to the RoomCloser.
type Sweeper struct {
	svc      *Service
	schedule string
	c        *cron.Cron
}

func NewSweeper(svc *Service, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		svc:      svc,
		schedule: schedule,
		c:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start runs one sweep right away and then on the schedule.
func (sw *Sweeper) Start() error {
	if _, err := sw.c.AddFunc(sw.schedule, sw.run); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid sweep schedule", err)
	}
	sw.run()
	sw.c.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (sw *Sweeper) Stop() {
	ctx := sw.c.Stop()
	<-ctx.Done()
}

func (sw *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	sw.Sweep(ctx)
}

// Sweep schedules every stale room and returns how many timers it armed.
func (sw *Sweeper) Sweep(ctx context.Context) int {
	rooms, err := sw.svc.store.OpenRoomsForResolvedAlerts(ctx)
	if err != nil {
		zap.L().Error("sweep open rooms", zap.Error(err))
		return 0
	}
	n := 0
	for _, roomID := range rooms {
		if sw.svc.Closer.Schedule(roomID) {
			n++
		}
	}
	if n > 0 {
		zap.L().Info("rescheduled room closes", zap.Int("rooms", n))
	}
	return n
}
