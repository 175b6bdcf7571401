package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

// StateController moves the chip between IDLE, RX and TX. Every transition
// is confirmed by reading MARCSTATE back.
type StateController struct {
	t      transport.Transport
	timing Timing
	log    logrus.FieldLogger
}

// NewStateController returns a controller using t for register access
func NewStateController(t transport.Transport, timing Timing, log logrus.FieldLogger) *StateController {
	return &StateController{t: t, timing: timing, log: defaultLogger(log)}
}

// State reads the current MARCSTATE
func (s *StateController) State() (registers.RadioState, error) {
	return registers.GetRadioState(s.t)
}

// EnterReceive strobes SRX and waits for RX
func (s *StateController) EnterReceive(ctx context.Context) error {
	return s.transition(ctx, registers.StrobeSRX, registers.StateRX)
}

// EnterTransmit strobes STX and waits until the chip has finished sending
// and dropped back to IDLE. MCSM1 must select IDLE as the TXOFF state, as
// every Mode table does.
func (s *StateController) EnterTransmit(ctx context.Context) error {
	return s.transition(ctx, registers.StrobeSTX, registers.StateIDLE)
}

// EnterIdle strobes SIDLE and waits for IDLE
func (s *StateController) EnterIdle(ctx context.Context) error {
	return s.transition(ctx, registers.StrobeSIDLE, registers.StateIDLE)
}

func (s *StateController) transition(ctx context.Context, strobe uint8, want registers.RadioState) error {
	if err := s.t.Strobe(strobe); err != nil {
		return fmt.Errorf("failed to strobe 0x%02X: %w", strobe, err)
	}
	return s.WaitForState(ctx, want)
}

// WaitForState polls MARCSTATE until it equals want. The poll gives up
// after Timing.StateTimeout with ErrStateTimeout. ctx is only checked
// between reads.
func (s *StateController) WaitForState(ctx context.Context, want registers.RadioState) error {
	deadline := time.Now().Add(s.timing.StateTimeout)
	var current registers.RadioState
	for {
		var err error
		current, err = registers.GetRadioState(s.t)
		if err != nil {
			return err
		}
		if current == want {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := Sleep(ctx, s.timing.PollInterval); err != nil {
			return err
		}
	}

	s.log.WithFields(logrus.Fields{
		"want": want,
		"got":  current,
	}).Warn("Radio did not reach state")
	return fmt.Errorf("%w: want %v, last %v", ErrStateTimeout, want, current)
}
