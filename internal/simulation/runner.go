package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/housemocktat/internal/household"
)

// Sink receives every reading produced by the runner.
type Sink interface {
	Publish(ctx context.Context, r household.Reading) error
}

type SinkFunc func(ctx context.Context, r household.Reading) error

func (f SinkFunc) Publish(ctx context.Context, r household.Reading) error {
	return f(ctx, r)
}

type RunnerConfig struct {
	// Interval is the wall-clock time between ticks.
	Interval time.Duration
	// Step is the simulated time advanced per tick.
	Step time.Duration
}

type Runner struct {
	svc   *Service
	cfg   RunnerConfig
	sinks []Sink
	log   *logrus.Entry
}

func NewRunner(svc *Service, cfg RunnerConfig, log *logrus.Logger, sinks ...Sink) (*Runner, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("runner: interval must be positive")
	}
	if cfg.Step < time.Second {
		return nil, errors.New("runner: step must be at least one second")
	}
	return &Runner{
		svc:   svc,
		cfg:   cfg,
		sinks: sinks,
		log:   log.WithField("component", "runner"),
	}, nil
}

// Run ticks the house until ctx is canceled. A time-travel error is fatal and
// ends the run.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.log.WithFields(logrus.Fields{
		"interval": r.cfg.Interval,
		"step":     r.cfg.Step,
	}).Info("simulation started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("simulation stopped")
			return ctx.Err()
		case <-ticker.C:
			if !r.svc.Running() {
				continue
			}
			if err := r.Step(ctx); err != nil {
				return err
			}
		}
	}
}

// Step performs a single tick and fans the reading out to the sinks.
func (r *Runner) Step(ctx context.Context) error {
	reading, err := r.svc.Step(int64(r.cfg.Step / time.Second))
	if err != nil {
		r.log.WithError(err).Error("tick failed")
		return fmt.Errorf("tick: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"time":        reading.Time,
		"draw_kw":     reading.TotalDraw,
		"temperature": reading.Temperature,
		"devices":     reading.Bitmask(),
	}).Debug("tick")

	for _, s := range r.sinks {
		if err := s.Publish(ctx, reading); err != nil {
			r.log.WithError(err).Warn("publish failed")
		}
	}
	return nil
}
