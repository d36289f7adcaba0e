// Package scheduler runs the periodic score-window resets and the daily
// notification fanout. Each job computes its own next boundary from an
// injected clock, so boundary arithmetic is testable without waiting for
// a real Monday.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

const jobTimeout = 5 * time.Minute

// Job is a recurring task. Next returns the first run boundary strictly
// after the given instant; Run performs one execution. A failed run is
// logged and the next boundary is scheduled regardless (at-most-once per
// boundary, no retries).
type Job struct {
	Name string
	Next func(after time.Time) time.Time
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	now  func() time.Time
	jobs []Job
	stop chan struct{}
	wg   sync.WaitGroup
}

func New() *Scheduler {
	return NewWithClock(time.Now)
}

// NewWithClock builds a scheduler reading time from the given clock.
func NewWithClock(now func() time.Time) *Scheduler {
	return &Scheduler{
		now:  now,
		stop: make(chan struct{}),
	}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}
	log.Printf("Scheduler started with %d job(s)", len(s.jobs))
}

// Stop signals all job goroutines and waits for them to exit. Runs already
// in flight are allowed to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	for {
		next := job.Next(s.now())
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		log.Printf("Scheduler: %s next run at %s", job.Name, next.UTC().Format(time.RFC3339))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.execute(job)
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := s.now()
	if err := job.Run(ctx); err != nil {
		log.Printf("Scheduler: %s failed: %v", job.Name, err)
		return
	}
	log.Printf("Scheduler: %s completed in %s", job.Name, s.now().Sub(start))
}

// NextWeeklyReset returns the first Monday 00:00 UTC strictly after the
// given instant.
func NextWeeklyReset(after time.Time) time.Time {
	after = after.UTC()
	daysSinceMonday := (int(after.Weekday()) + 6) % 7
	monday := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)
	return monday.AddDate(0, 0, 7)
}

// NextMonthlyReset returns the first day of the following month at
// 00:00 UTC.
func NextMonthlyReset(after time.Time) time.Time {
	after = after.UTC()
	return time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// NextDailyAt returns the next occurrence of hour:00 UTC strictly after
// the given instant.
func NextDailyAt(hour int) func(after time.Time) time.Time {
	return func(after time.Time) time.Time {
		after = after.UTC()
		next := time.Date(after.Year(), after.Month(), after.Day(), hour, 0, 0, 0, time.UTC)
		if !next.After(after) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}
