package services

import (
	"context"
	"log"
	"time"
)

// DecaySweeper periodically applies inactivity decay across all mastery
// records. One sweep runs at startup, then on every tick until the context
// is cancelled.
type DecaySweeper struct {
	masteryService *MasteryService
	interval       time.Duration
	inactiveDays   int
}

func NewDecaySweeper(masteryService *MasteryService, interval time.Duration, inactiveDays int) *DecaySweeper {
	return &DecaySweeper{
		masteryService: masteryService,
		interval:       interval,
		inactiveDays:   inactiveDays,
	}
}

func (d *DecaySweeper) Start(ctx context.Context) {
	go func() {
		log.Printf("Decay sweeper started (interval %s, inactive after %d days)", d.interval, d.inactiveDays)

		d.sweep(ctx)

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Decay sweeper stopped")
				return
			case <-ticker.C:
				d.sweep(ctx)
			}
		}
	}()
}

func (d *DecaySweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if _, err := d.masteryService.ApplyDecayToInactiveSkills(sweepCtx, d.inactiveDays); err != nil {
		log.Printf("Decay sweep failed: %v", err)
	}
}
