package sweeps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ambulance/pkg/logger"
)

var ErrUnknownJob = errors.New("unknown sweep job")

// Scheduler runs each registered job on its own ticker.
type Scheduler struct {
	jobs  map[string]Job
	order []string
	log   *logger.Logger
}

func NewScheduler(log *logger.Logger, jobs ...Job) *Scheduler {
	s := &Scheduler{jobs: make(map[string]Job, len(jobs)), log: log}
	for _, j := range jobs {
		if _, dup := s.jobs[j.Name()]; !dup {
			s.order = append(s.order, j.Name())
		}
		s.jobs[j.Name()] = j
	}
	return s
}

// Jobs lists the registered jobs in registration order.
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.jobs[name])
	}
	return out
}

func (s *Scheduler) RunOnce(ctx context.Context, name string) (Report, error) {
	job, ok := s.jobs[name]
	if !ok {
		return Report{Job: name}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

// Run starts every job immediately and then on its interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.Jobs() {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, job)
		}()
	}
	wg.Wait()
	s.log.Info("Sweep scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	if job.Interval() <= 0 {
		s.log.Warn("Sweep job disabled, interval is not positive", "job", job.Name(), "interval", job.Interval())
		return
	}

	s.log.Info("Sweep job scheduled", "job", job.Name(), "interval", job.Interval())
	_, _ = s.execute(ctx, job)

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) (report Report, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep job %s panicked: %v", job.Name(), r)
			s.log.Error("Sweep job panicked", "job", job.Name(), "panic", r)
		}
	}()

	report, err = job.Run(ctx)
	if err != nil {
		s.log.Error("Sweep job failed",
			"job", job.Name(),
			"scanned", report.Scanned,
			"processed", report.Processed,
			"error", err,
		)
		return report, err
	}

	s.log.Info("Sweep job completed",
		"job", job.Name(),
		"scanned", report.Scanned,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start),
	)
	return report, nil
}
