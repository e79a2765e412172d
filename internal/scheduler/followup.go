// Package scheduler runs the periodic follow-up sweep over the lead list.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/metrics"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

// DueLister returns leads whose follow-up moment has passed.
type DueLister interface {
	DueFollowUps(ctx context.Context, now time.Time) ([]models.Lead, error)
}

// Scheduler wraps robfig/cron and owns the follow-up sweep.
type Scheduler struct {
	cron  *cron.Cron
	leads DueLister
	spec  string // cron spec, e.g. "@every 1h"
	now   func() time.Time
}

func New(leads DueLister, spec string) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		leads: leads,
		spec:  spec,
		now:   time.Now,
	}
}

// Start registers the sweep and starts the scheduler. One sweep runs
// immediately so the gauge is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	go s.Sweep(ctx)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

// Sweep logs every lead with a due follow-up and updates the followups_due
// gauge. It returns the due leads.
func (s *Scheduler) Sweep(ctx context.Context) []models.Lead {
	due, err := s.leads.DueFollowUps(ctx, s.now())
	if err != nil {
		log.Printf("[scheduler] DueFollowUps error: %v", err)
		return nil
	}

	metrics.SetFollowUpsDue(len(due))
	if len(due) == 0 {
		return due
	}

	log.Printf("[scheduler] %d follow-up(s) due", len(due))
	for _, l := range due {
		log.Printf("[scheduler] follow up %q (%s, status %s) since %s", l.CompanyName, l.ID, l.Status, l.NextFollowUp.Format(time.RFC3339))
	}
	return due
}
