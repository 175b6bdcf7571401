package config

import (
	"context"
	"fmt"
	"time"

	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
)

// DeviceConfig holds a register snapshot of one CC1101
type DeviceConfig struct {
	Name      string                `json:"name"`
	PartNum   uint8                 `json:"part_num"`
	Version   uint8                 `json:"version"`
	CrystalHz int                   `json:"crystal_hz"`
	Timestamp time.Time             `json:"timestamp"`
	Registers registers.RegisterMap `json:"registers"`
}

// idleFor puts the radio in IDLE for register access and returns a func that
// restores receive mode if the radio was receiving
func idleFor(ctx context.Context, t transport.Transport) (func() error, error) {
	state := radio.NewStateController(t, radio.DefaultTiming(), nil)

	original, err := state.State()
	if err != nil {
		return nil, fmt.Errorf("failed to get radio state: %w", err)
	}

	if original != registers.StateIDLE {
		if err := state.EnterIdle(ctx); err != nil {
			return nil, fmt.Errorf("failed to set IDLE state: %w", err)
		}
	}

	return func() error {
		if original != registers.StateRX {
			return nil
		}
		return state.EnterReceive(ctx)
	}, nil
}

// DumpFromDevice reads all configuration from a device
func DumpFromDevice(ctx context.Context, t transport.Transport, name string, crystalHz int) (*DeviceConfig, error) {
	restore, err := idleFor(ctx, t)
	if err != nil {
		return nil, err
	}

	registerMap, err := registers.ReadAllRegisters(t)
	if err != nil {
		return nil, fmt.Errorf("failed to read registers: %w", err)
	}

	if err := restore(); err != nil {
		return nil, fmt.Errorf("failed to restore radio state: %w", err)
	}

	return &DeviceConfig{
		Name:      name,
		PartNum:   registerMap.PARTNUM,
		Version:   registerMap.VERSION,
		CrystalHz: crystalHz,
		Timestamp: time.Now(),
		Registers: *registerMap,
	}, nil
}

// ApplyToDevice writes configuration to a device
func ApplyToDevice(ctx context.Context, t transport.Transport, configuration *DeviceConfig) error {
	restore, err := idleFor(ctx, t)
	if err != nil {
		return err
	}

	if err := registers.WriteAllRegisters(t, &configuration.Registers); err != nil {
		return fmt.Errorf("failed to write registers: %w", err)
	}

	if err := restore(); err != nil {
		return fmt.Errorf("failed to restore radio state: %w", err)
	}
	return nil
}

func (c *DeviceConfig) crystal() int {
	if c.CrystalHz > 0 {
		return c.CrystalHz
	}
	return profiles.CrystalHz
}

// GetFrequencyMHz returns the configured frequency in MHz
func (c *DeviceConfig) GetFrequencyMHz() float64 {
	return registers.GetFrequency(&c.Registers, float64(c.crystal())) / 1e6
}

// GetSyncWord returns the 16-bit sync word
func (c *DeviceConfig) GetSyncWord() uint16 {
	return registers.GetSyncWord(&c.Registers)
}

// GetModulationString returns a human-readable modulation format
func (c *DeviceConfig) GetModulationString() string {
	return registers.ModulationName(registers.GetModulation(&c.Registers))
}

// GetRadioStateString returns a human-readable radio state
func (c *DeviceConfig) GetRadioStateString() string {
	return registers.StateFromMARCSTATE(c.Registers.MARCSTATE).String()
}

// GetDatarate returns the configured datarate in baud
func (c *DeviceConfig) GetDatarate() float64 {
	return radio.DatarateFromRegs(c.Registers.MDMCFG4&registers.MaskDatarateExp, c.Registers.MDMCFG3, c.crystal())
}

// GetDeviation returns the configured frequency deviation in Hz
func (c *DeviceConfig) GetDeviation() float64 {
	return radio.DeviationFromReg(c.Registers.DEVIATN, c.crystal())
}
