package scheduler

import (
	"context"
	"errors"
	"testing"

	"cryptobroker/src/model"
)

type fakeScan struct {
	kinds []string
	err   error
}

func (f *fakeScan) Run(_ context.Context, kind string) (*model.Signal, error) {
	f.kinds = append(f.kinds, kind)
	return &model.Signal{}, f.err
}

type fakeWatch struct {
	runs int
	err  error
}

func (f *fakeWatch) Run(context.Context) error {
	f.runs++
	return f.err
}

func TestNew_InvalidTimezone(t *testing.T) {
	cfg := Config{Timezone: "Mars/Olympus"}
	if _, err := New(cfg, &fakeScan{}, &fakeWatch{}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestStart_RegistersAllJobs(t *testing.T) {
	cfg := Config{
		Timezone:     "UTC",
		DeepScanSpec: "30 7 * * *",
		RescoreSpec:  "0 13,22 * * *",
		WatchSpec:    "0 * * * *",
	}
	s, err := New(cfg, &fakeScan{}, &fakeWatch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 3 {
		t.Fatalf("expected 3 registered jobs, got %d", got)
	}
}

func TestStart_BadSpec(t *testing.T) {
	cfg := Config{
		Timezone:     "UTC",
		DeepScanSpec: "not a cron spec",
		RescoreSpec:  "0 13,22 * * *",
		WatchSpec:    "0 * * * *",
	}
	s, err := New(cfg, &fakeScan{}, &fakeWatch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected error for malformed cron spec")
	}
}

func TestRunHelpers_SwallowJobErrors(t *testing.T) {
	scan := &fakeScan{err: errors.New("scan broke")}
	watch := &fakeWatch{err: errors.New("watch broke")}
	s, err := New(Config{Timezone: "UTC"}, scan, watch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.runScan("deep")
	s.runWatch()

	if len(scan.kinds) != 1 || scan.kinds[0] != "deep" {
		t.Fatalf("expected one deep scan attempt, got %v", scan.kinds)
	}
	if watch.runs != 1 {
		t.Fatalf("expected one watch attempt, got %d", watch.runs)
	}
}
