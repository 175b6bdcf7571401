package radio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/sirupsen/logrus"
)

const csPin = 8

func fastTiming() Timing {
	return Timing{
		PollInterval: time.Millisecond,
		StateTimeout: 20 * time.Millisecond,
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newControllers(t *testing.T) (*chipsim.Chip, *StateController, *PowerController) {
	t.Helper()
	chip := chipsim.New("dut", 0)
	if err := chip.OpenPin(csPin, pins.Output); err != nil {
		t.Fatal(err)
	}
	state := NewStateController(chip, fastTiming(), quietLogger())
	power := NewPowerController(chip, chip, csPin, state, fastTiming(), quietLogger())
	return chip, state, power
}

func TestStateTransitions(t *testing.T) {
	chip, state, _ := newControllers(t)
	ctx := context.Background()

	if err := state.EnterReceive(ctx); err != nil {
		t.Fatalf("EnterReceive: %v", err)
	}
	if chip.State() != registers.StateRX {
		t.Errorf("state %v, want RX", chip.State())
	}
	if err := state.EnterIdle(ctx); err != nil {
		t.Fatalf("EnterIdle: %v", err)
	}
	if err := state.EnterTransmit(ctx); err != nil {
		t.Fatalf("EnterTransmit: %v", err)
	}
	want := []uint8{registers.StrobeSRX, registers.StrobeSIDLE, registers.StrobeSTX}
	if got := chip.Strobes(); !bytes.Equal(got, want) {
		t.Errorf("strobes %X, want %X", got, want)
	}
}

func TestWaitForStateTimeout(t *testing.T) {
	chip, state, _ := newControllers(t)
	chip.Stick(true)

	start := time.Now()
	err := state.EnterReceive(context.Background())
	if !errors.Is(err, ErrStateTimeout) {
		t.Fatalf("got %v, want ErrStateTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < fastTiming().StateTimeout {
		t.Errorf("gave up after %v", elapsed)
	}
}

func TestWaitForStateContext(t *testing.T) {
	chip, _, _ := newControllers(t)
	chip.Stick(true)
	state := NewStateController(chip, Timing{PollInterval: time.Millisecond, StateTimeout: time.Hour}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := state.WaitForState(ctx, registers.StateRX); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero duration: %v", err)
	}
	start := time.Now()
	if err := Sleep(context.Background(), 5*time.Millisecond); err != nil || time.Since(start) < 5*time.Millisecond {
		t.Errorf("returned after %v: %v", time.Since(start), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("zero duration on cancelled context: %v", err)
	}
	start = time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep kept waiting")
	}
}

func TestResetSequence(t *testing.T) {
	chip, _, power := newControllers(t)
	if err := chip.WriteRegister(registers.RegCHANNR, 9); err != nil {
		t.Fatal(err)
	}
	if err := power.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := chip.Strobes(); !bytes.Equal(got, []uint8{registers.StrobeSRES}) {
		t.Errorf("strobes %X, want SRES", got)
	}
	if chip.Register(registers.RegCHANNR) != 0 {
		t.Error("SRES did not restore reset values")
	}
	if high, _ := chip.ReadLine(csPin); !high {
		t.Error("CS left low after reset pulse")
	}
}

func TestPowerDownWakeUp(t *testing.T) {
	chip, state, power := newControllers(t)
	ctx := context.Background()
	if err := state.EnterReceive(ctx); err != nil {
		t.Fatal(err)
	}

	if err := power.PowerDown(ctx); err != nil {
		t.Fatalf("PowerDown: %v", err)
	}
	if chip.State() != registers.StateSLEEP {
		t.Fatalf("state %v, want SLEEP", chip.State())
	}
	if err := power.WakeUp(ctx); err != nil {
		t.Fatalf("WakeUp: %v", err)
	}
	if chip.State() != registers.StateRX {
		t.Errorf("state %v, want RX", chip.State())
	}
}

func TestSetOutputPowerKeepsFREND0(t *testing.T) {
	chip, _, power := newControllers(t)
	if err := chip.WriteRegister(registers.RegFREND0, 0x10); err != nil {
		t.Fatal(err)
	}
	for _, p := range []OutputPower{MaximumStrength, Moderate, ExtremelyWeak} {
		if err := power.SetOutputPower(p); err != nil {
			t.Fatalf("%v: %v", p, err)
		}
		if got := chip.Register(registers.RegFREND0); got != 0x10|uint8(p) {
			t.Errorf("%v: FREND0 = %02X", p, got)
		}
		if got, _ := power.OutputPower(); got != p {
			t.Errorf("read back %v, want %v", got, p)
		}
	}
	if err := power.SetOutputPower(OutputPower(8)); !errors.Is(err, ErrInvalidOutputPower) {
		t.Errorf("got %v, want ErrInvalidOutputPower", err)
	}
}

func TestOutputPowerText(t *testing.T) {
	var p OutputPower
	if err := p.UnmarshalText([]byte("very-weak")); err != nil || p != VeryWeak {
		t.Errorf("got %v, %v", p, err)
	}
	if _, err := ParseOutputPower("loud"); !errors.Is(err, ErrInvalidOutputPower) {
		t.Errorf("got %v, want ErrInvalidOutputPower", err)
	}
}

func TestWakeOnRadio(t *testing.T) {
	chip, _, power := newControllers(t)
	wor := NewWakeOnRadio(chip, power)
	ctx := context.Background()

	if err := wor.Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	regs := map[uint8]uint8{
		registers.RegMCSM0:   0x18,
		registers.RegMCSM2:   0x01,
		registers.RegWOREVT1: 0xFF,
		registers.RegWOREVT0: 0x7F,
		registers.RegWORCTRL: 0x78,
	}
	for addr, want := range regs {
		if got := chip.Register(addr); got != want {
			t.Errorf("register 0x%02X = %02X, want %02X", addr, got, want)
		}
	}
	want := []uint8{registers.StrobeSIDLE, registers.StrobeSFRX, registers.StrobeSWORRST, registers.StrobeSWOR}
	if got := chip.Strobes(); !bytes.Equal(got, want) {
		t.Errorf("strobes %X, want %X", got, want)
	}
	if chip.State() != registers.StateSLEEP {
		t.Errorf("state %v, want SLEEP", chip.State())
	}

	chip.SetState(registers.StateIDLE)
	if err := wor.Disable(ctx); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if got := chip.Register(registers.RegMCSM2); got != 0x07 {
		t.Errorf("MCSM2 = %02X after disable, want 07", got)
	}
}

func TestConfiguratorFields(t *testing.T) {
	chip := chipsim.New("dut", 0)
	c := NewConfigurator(chip)

	if err := c.SetMode(profiles.GFSK100k); err != nil {
		t.Fatal(err)
	}
	table, _ := profiles.ModeRegisters(profiles.GFSK100k)
	for i, want := range table {
		if got := chip.Register(profiles.ModeBlockStart + uint8(i)); got != want {
			t.Errorf("mode register 0x%02X = %02X, want %02X", profiles.ModeBlockStart+i, got, want)
		}
	}

	if err := c.SetBand(profiles.Band915); err != nil {
		t.Fatal(err)
	}
	pa, _ := profiles.PATable(profiles.Band915)
	if chip.PATable() != pa {
		t.Errorf("PA table %X, want %X", chip.PATable(), pa)
	}

	steps := []struct {
		name string
		do   func() error
		addr uint8
		want uint8
	}{
		{"preamble 8", func() error { return c.SetPreambleLength(8) }, registers.RegMDMCFG1, 0x42},
		{"fec on", func() error { return c.SetFEC(true) }, registers.RegMDMCFG1, 0xC2},
		{"manchester on", func() error { return c.SetManchesterEncoding(true) }, registers.RegMDMCFG2, 0x1B},
		{"sync 30/32", func() error { return c.SetSyncMode(registers.Sync30of32) }, registers.RegMDMCFG2, 0x1B},
		{"ook", func() error { return c.SetModulationType(registers.ModASKOOK) }, registers.RegMDMCFG2, 0x3B},
		{"whitening on", func() error { return c.SetDataWhitening(true) }, registers.RegPKTCTRL0, 0x45},
		{"whitening off", func() error { return c.SetDataWhitening(false) }, registers.RegPKTCTRL0, 0x05},
		{"channel", func() error { return c.SetChannel(17) }, registers.RegCHANNR, 17},
		{"address", func() error { return c.SetAddress(0x2A) }, registers.RegADDR, 0x2A},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if got := chip.Register(s.addr); got != s.want {
			t.Errorf("%s: register 0x%02X = %02X, want %02X", s.name, s.addr, got, s.want)
		}
	}

	if err := c.SetPreambleLength(5); !errors.Is(err, ErrInvalidPreamble) {
		t.Errorf("got %v, want ErrInvalidPreamble", err)
	}
	if err := c.SetPowerAmplifierTable(make([]byte, 9)); !errors.Is(err, ErrInvalidPATable) {
		t.Errorf("got %v, want ErrInvalidPATable", err)
	}
}
