package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
	"cryptobroker/src/scanner"
)

type scanRunner interface {
	Run(ctx context.Context, kind string) (*model.Signal, error)
}

type watchRunner interface {
	Run(ctx context.Context) error
}

// Scheduler owns the recurring jobs: the morning deep scan, the intraday
// rescores and the hourly position watch. Jobs never overlap themselves; a
// tick that arrives while the previous run is still going is skipped.
type Scheduler struct {
	cfg   Config
	cron  *cron.Cron
	scan  scanRunner
	watch watchRunner
}

func New(cfg Config, scan scanRunner, watch watchRunner) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	cronLog := cron.PrintfLogger(logger.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLog),
			cron.Recover(cronLog),
		),
	)

	return &Scheduler{cfg: cfg, cron: c, scan: scan, watch: watch}, nil
}

// Start registers the jobs and launches the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"deep_scan", s.cfg.DeepScanSpec, func() { s.runScan(scanner.KindDeep) }},
		{"rescore", s.cfg.RescoreSpec, func() { s.runScan(scanner.KindRescore) }},
		{"position_watch", s.cfg.WatchSpec, s.runWatch},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("register job %s (%q): %w", job.name, job.spec, err)
		}
		logger.WithFields(map[string]interface{}{
			"component": "scheduler",
			"job":       job.name,
			"spec":      job.spec,
			"tz":        s.cfg.Timezone,
		}).Info("Job registered")
	}

	s.cron.Start()
	logger.WithField("component", "scheduler").Info("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.WithField("component", "scheduler").Info("Scheduler stopped")
}

func (s *Scheduler) runScan(kind string) {
	if _, err := s.scan.Run(context.Background(), kind); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"component": "scheduler",
			"job":       "scan",
			"kind":      kind,
		}).Error("Scheduled scan failed")
	}
}

func (s *Scheduler) runWatch() {
	if err := s.watch.Run(context.Background()); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"component": "scheduler",
			"job":       "position_watch",
		}).Error("Scheduled watch cycle failed")
	}
}
