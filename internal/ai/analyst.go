// Package ai produces bill analyses and simulated impact events, either through a remote chat completion API
// or with the offline generator.
package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
)

// Analyst reads bills and predicts their effects.
type Analyst interface {
	// Analyze extracts the structured analysis of billText.
	Analyze(ctx context.Context, billText string) (models.BillAnalysis, error)
	// Simulate generates dated events for analysis within window.
	Simulate(ctx context.Context, analysis models.BillAnalysis, window models.DateRange) ([]models.SimulationEvent, error)
	// Mode names the implementation, ModeRemote or ModeOffline.
	Mode() string
}

const (
	ModeAuto    = "auto"
	ModeRemote  = "remote"
	ModeOffline = "offline"
)

var ErrUnknownMode = errors.NewSentinel("unknown analysis mode")

// Config selects and configures the [Analyst].
type Config struct {
	// Mode is ModeAuto, ModeRemote or ModeOffline. Auto picks remote when an API key is configured.
	Mode              string
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	RequestsPerSecond float64
	// OfflineLatency makes the offline generator pause like a remote call would.
	OfflineLatency bool
}

// New returns the Analyst selected by cfg.
func New(cfg Config, logger *slog.Logger) (Analyst, error) {
	switch cfg.Mode {
	case ModeAuto, "":
		if cfg.APIKey == "" {
			logger.LogAttrs(context.Background(), slog.LevelInfo, "no analysis api key configured, using offline mode")
			return newOffline(cfg), nil
		}
		return newRemote(cfg, logger)
	case ModeRemote:
		return newRemote(cfg, logger)
	case ModeOffline:
		return newOffline(cfg), nil
	default:
		return nil, errors.Wrap(ErrUnknownMode, "select analyst", slog.String("mode", cfg.Mode))
	}
}

func newRemote(cfg Config, logger *slog.Logger) (Analyst, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newOffline(cfg Config) *Offline {
	if !cfg.OfflineLatency {
		return NewOffline(WithSleeper(NoSleep))
	}
	return NewOffline()
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the [Sleeper] backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sleep")
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately.
func NoSleep(context.Context, time.Duration) error {
	return nil
}
