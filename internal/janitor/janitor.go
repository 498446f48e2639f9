// Package janitor runs the periodic cleanup job: ended engines are evicted
// from memory after a retention window and stale match rows are purged.
package janitor

import (
	"time"

	"github.com/cpduel/cpduel/internal/arena"
	"github.com/cpduel/cpduel/internal/config"
	"github.com/cpduel/cpduel/internal/database"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Janitor struct {
	scheduler gocron.Scheduler
}

func Start(cfg config.Janitor, db *gorm.DB, mgr *arena.Manager) (*Janitor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	keep := time.Duration(cfg.KeepEndedMinutes) * time.Minute
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(cfg.IntervalSeconds)*time.Second),
		gocron.NewTask(func() {
			if evicted := mgr.EvictEnded(keep); evicted > 0 {
				zap.S().Infof("evicted %d ended matches from memory", evicted)
			}

			purged, err := database.DeleteStaleMatches(db, time.Now().Add(-keep))
			if err != nil {
				zap.S().Errorf("failed to purge stale matches: %v", err)
				return
			}
			if purged > 0 {
				zap.S().Infof("purged %d stale match rows", purged)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return &Janitor{scheduler: scheduler}, nil
}

func (j *Janitor) Stop() {
	if err := j.scheduler.Shutdown(); err != nil {
		zap.S().Warnf("janitor shutdown: %v", err)
	}
}
