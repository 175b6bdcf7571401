package radio

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Timing bounds every hardware wait in this package
type Timing struct {
	// PollInterval is the pause between MARCSTATE reads
	PollInterval time.Duration
	// StateTimeout bounds a single state transition
	StateTimeout time.Duration
	// IdleSettle is slept after the chip confirms IDLE
	IdleSettle time.Duration
	// ResetLow, ResetHigh and ResetSettle shape the power-on reset pulse
	ResetLow    time.Duration
	ResetHigh   time.Duration
	ResetSettle time.Duration
}

// DefaultTiming matches datasheet-safe values for a 26MHz module
func DefaultTiming() Timing {
	return Timing{
		PollInterval: 1 * time.Millisecond,
		StateTimeout: 500 * time.Millisecond,
		IdleSettle:   100 * time.Millisecond,
		ResetLow:     10 * time.Millisecond,
		ResetHigh:    50 * time.Millisecond,
		ResetSettle:  5 * time.Millisecond,
	}
}

// Sleep waits for d or until ctx is done. A zero or negative d only
// reports whether ctx is already done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func defaultLogger(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}
