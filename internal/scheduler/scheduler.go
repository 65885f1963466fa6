// Package scheduler runs the recurring price refresh on a cron schedule.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/optionfolio/backend/internal/service"
)

// Scheduler owns the cron runner. Only one job is registered: the daily bulk
// price refresh after market close.
type Scheduler struct {
	cron         *cron.Cron
	priceService *service.PriceService
}

// New creates a Scheduler that refreshes prices on the given cron expression.
func New(priceService *service.PriceService, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		priceService: priceService,
	}

	if _, err := s.cron.AddFunc(schedule, s.refresh); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.priceService.RefreshAll(ctx, nil)
	if err != nil {
		log.Printf("scheduled price refresh failed: %v", err)
		return
	}
	log.Printf("scheduled price refresh: %d grants updated, %d observations stored",
		result.GrantsUpdated, result.ObservationsInserted)
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
