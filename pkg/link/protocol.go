package link

import (
	"context"
	"fmt"
	"time"

	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/sirupsen/logrus"
)

// Send transmits payload to dest. A broadcast succeeds as soon as the frame
// is on the air. A unicast is attempted retries+1 times, each attempt
// waiting the full ACK window; unrelated packets seen during the window are
// dropped without extending it. On success the acknowledgement is returned.
func (e *Engine) Send(ctx context.Context, dest uint8, payload []byte, retries int) (Result[*Packet], error) {
	if err := e.lock(); err != nil {
		return failed[*Packet](), err
	}
	defer e.mu.Unlock()

	frame, err := EncodeFrame(dest, e.address, payload)
	if err != nil {
		return failed[*Packet](), err
	}
	if retries < 0 {
		retries = 0
	}

	for attempt := 0; attempt <= retries; attempt++ {
		if err := e.transmit(ctx, frame); err != nil {
			return failed[*Packet](), err
		}
		if dest == Broadcast {
			return succeed[*Packet](nil), nil
		}

		ack, err := e.awaitAck(ctx, dest)
		if err != nil {
			return failed[*Packet](), err
		}
		if ack.Success {
			return ack, nil
		}
		e.log.WithFields(logrus.Fields{
			"dest":    fmt.Sprintf("0x%02X", dest),
			"attempt": attempt + 1,
			"channel": e.channel,
		}).Debug("No acknowledgement")
	}
	return failed[*Packet](), nil
}

// transmit loads frame, sends it and returns to RX
func (e *Engine) transmit(ctx context.Context, frame []byte) error {
	if err := e.bus.WriteBurst(registers.RegFIFO, frame); err != nil {
		return fmt.Errorf("failed to load TX FIFO: %w", err)
	}
	if err := e.state.EnterTransmit(ctx); err != nil {
		return err
	}
	return e.state.EnterReceive(ctx)
}

func (e *Engine) awaitAck(ctx context.Context, dest uint8) (Result[*Packet], error) {
	deadline := time.Now().Add(e.timing.AckWindow)
	for time.Now().Before(deadline) {
		avail, err := e.packetAvailable(ctx)
		if err != nil {
			return failed[*Packet](), err
		}
		if avail {
			rx, err := e.tryReceive(ctx)
			if err != nil {
				return failed[*Packet](), err
			}
			if rx.Success {
				if ack := e.checkAcknowledge(dest, rx.Value); ack.Success {
					return ack, nil
				}
				e.log.WithField("dest", fmt.Sprintf("0x%02X", dest)).Debug("Dropped packet while waiting for acknowledgement")
			}
		}
		if err := radio.Sleep(ctx, e.timing.PacketPoll); err != nil {
			return failed[*Packet](), err
		}
	}
	return failed[*Packet](), nil
}

// SendAcknowledge transmits an "Ack" frame to receiver and returns to RX
func (e *Engine) SendAcknowledge(ctx context.Context, receiver uint8) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.sendAcknowledge(ctx, receiver)
}

func (e *Engine) sendAcknowledge(ctx context.Context, receiver uint8) error {
	frame, err := EncodeFrame(receiver, e.address, AckPayload)
	if err != nil {
		return err
	}
	return e.transmit(ctx, frame)
}

// CheckAcknowledge reports whether frame acknowledges a send to receiver:
// an "Ack" frame from receiver addressed to this node. An acknowledgement
// addressed to the broadcast address never matches.
func (e *Engine) CheckAcknowledge(receiver uint8, frame []byte) Result[*Packet] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkAcknowledge(receiver, frame)
}

func (e *Engine) checkAcknowledge(receiver uint8, frame []byte) Result[*Packet] {
	if !isAckShape(frame) {
		return failed[*Packet]()
	}
	if frame[1] == Broadcast || frame[1] != e.address || frame[2] != receiver {
		return failed[*Packet]()
	}

	p := &Packet{
		sender:   frame[2],
		receiver: frame[1],
		payload:  append([]byte(nil), AckPayload...),
		raw:      append([]byte(nil), frame...),
	}
	if len(frame) == ackFrameLen+statusLen {
		p.rssi = RSSIToDBm(frame[ackFrameLen], e.rssiOffset)
		p.lqi = LQI(frame[ackFrameLen+1])
		p.crcOK = CRCOK(frame[ackFrameLen+1])
	}
	return succeed(p)
}

// TryReceive reads whatever the RX FIFO holds. An empty or overflowed FIFO
// is flushed and the chip returned to RX; the result is then a failure.
func (e *Engine) TryReceive(ctx context.Context) (Result[[]byte], error) {
	if err := e.lock(); err != nil {
		return failed[[]byte](), err
	}
	defer e.mu.Unlock()
	return e.tryReceive(ctx)
}

func (e *Engine) tryReceive(ctx context.Context) (Result[[]byte], error) {
	rxBytes, err := e.bus.ReadRegister(registers.RegRXBYTES)
	if err != nil {
		return failed[[]byte](), fmt.Errorf("failed to read RXBYTES: %w", err)
	}

	n := int(rxBytes & registers.RXBytesMask)
	overflow := rxBytes&registers.RXOverflow != 0
	if n != 0 && !overflow {
		data, err := e.bus.ReadBurst(registers.RegFIFO, n)
		if err != nil {
			return failed[[]byte](), fmt.Errorf("failed to read RX FIFO: %w", err)
		}
		return succeed(data), nil
	}

	entry := e.log.WithField("rxbytes", fmt.Sprintf("0x%02X", rxBytes))
	if overflow {
		entry.Warn("RX FIFO overflow, flushing")
	} else {
		entry.Debug("RX FIFO empty, flushing")
	}
	if err := e.power.Idle(ctx); err != nil {
		return failed[[]byte](), err
	}
	if err := e.bus.Strobe(registers.StrobeSFRX); err != nil {
		return failed[[]byte](), fmt.Errorf("failed to flush RX FIFO: %w", err)
	}
	if err := radio.Sleep(ctx, e.timing.FlushSettle); err != nil {
		return failed[[]byte](), err
	}
	if err := e.state.EnterReceive(ctx); err != nil {
		return failed[[]byte](), err
	}
	return failed[[]byte](), nil
}

// GetPayload receives one application packet. Acknowledgement frames and
// malformed buffers are never returned. A packet addressed to this node is
// acknowledged before GetPayload returns, unless the local address is the
// broadcast address. Duplicates are acknowledged again.
func (e *Engine) GetPayload(ctx context.Context) (Result[*Packet], error) {
	if err := e.lock(); err != nil {
		return failed[*Packet](), err
	}
	defer e.mu.Unlock()

	rx, err := e.tryReceive(ctx)
	if err != nil || !rx.Success {
		return failed[*Packet](), err
	}
	if isAckShape(rx.Value) {
		e.log.Debug("Ignoring acknowledgement frame")
		return failed[*Packet](), nil
	}

	p, err := parsePacket(rx.Value, e.rssiOffset)
	if err != nil {
		e.log.WithError(err).Debug("Dropping frame")
		return failed[*Packet](), nil
	}

	if p.receiver == e.address && e.address != Broadcast {
		if err := e.sendAcknowledge(ctx, p.sender); err != nil {
			return failed[*Packet](), fmt.Errorf("failed to acknowledge 0x%02X: %w", p.sender, err)
		}
	}
	return succeed(p), nil
}

// PacketAvailable samples GDO2. With IOCFG2 set to sync word detection the
// line rises on sync and falls at end of packet, so a high line is
// followed until it falls, bounded by SyncClearTimeout.
func (e *Engine) PacketAvailable(ctx context.Context) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	return e.packetAvailable(ctx)
}

func (e *Engine) packetAvailable(ctx context.Context) (bool, error) {
	high, err := e.gpio.ReadLine(e.gdo2)
	if err != nil {
		return false, fmt.Errorf("failed to read GDO2: %w", err)
	}
	if !high {
		return false, nil
	}

	cfg, err := e.bus.ReadRegister(registers.RegIOCFG2)
	if err != nil {
		return false, fmt.Errorf("failed to read IOCFG2: %w", err)
	}
	if cfg != registers.IOCFGSyncWord {
		return true, nil
	}

	deadline := time.Now().Add(e.timing.SyncClearTimeout)
	for {
		high, err := e.gpio.ReadLine(e.gdo2)
		if err != nil {
			return false, fmt.Errorf("failed to read GDO2: %w", err)
		}
		if !high {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, ErrSyncTimeout
		}
		if err := radio.Sleep(ctx, e.timing.Radio.PollInterval); err != nil {
			return false, err
		}
	}
}

// WaitForPacket polls PacketAvailable until it reports a packet or timeout
// elapses
func (e *Engine) WaitForPacket(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	start := time.Now()
	for time.Since(start) < timeout {
		avail, err := e.packetAvailable(ctx)
		if err != nil || avail {
			return avail, err
		}
		if err := radio.Sleep(ctx, e.timing.PacketPoll); err != nil {
			return false, err
		}
	}
	e.log.WithField("channel", e.channel).Debug("No packet before timeout")
	return false, nil
}
