package timer

import (
	"context"
	"log/slog"
	"time"
)

const DefaultTickInterval = time.Second

type Ticker interface {
	Tick()
}

// Driver calls Tick on a fixed interval until its context ends.
type Driver struct {
	target   Ticker
	interval time.Duration
	logger   *slog.Logger
}

func NewDriver(target Ticker, interval time.Duration, logger *slog.Logger) *Driver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{target: target, interval: interval, logger: logger}
}

func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Debug("timer driver started", slog.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("timer driver stopped")
			return ctx.Err()
		case <-ticker.C:
			d.target.Tick()
		}
	}
}
