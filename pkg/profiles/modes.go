package profiles

import (
	"fmt"

	"github.com/herlein/cc1101/pkg/registers"
)

// ModeBlockStart is the first register of the modem block written by a Mode
const ModeBlockStart = registers.RegMDMCFG4

// ModeBlockLen covers MDMCFG4 (0x10) through FREND0 (0x22)
const ModeBlockLen = registers.RegFREND0 - registers.RegMDMCFG4 + 1

// ModeTable is the register image for one Mode, in address order from
// MDMCFG4
type ModeTable [ModeBlockLen]byte

// MDMCFG4 MDMCFG3 MDMCFG2 MDMCFG1 MDMCFG0 DEVIATN MCSM2 MCSM1 MCSM0 FOCCFG BSCFG AGCCTRL2 AGCCTRL1 AGCCTRL0 WOREVT1 WOREVT0 WORCTRL FREND1 FREND0
var modeTables = map[Mode]ModeTable{
	GFSK1_2k:  {0xF5, 0x83, 0x13, 0x22, 0xF8, 0x15, 0x07, 0x0C, 0x18, 0x16, 0x6C, 0x03, 0x40, 0x91, 0x87, 0x6B, 0xF8, 0x56, 0x10},
	GFSK38_4k: {0xCA, 0x83, 0x13, 0x22, 0xF8, 0x35, 0x07, 0x0C, 0x18, 0x16, 0x6C, 0x43, 0x40, 0x91, 0x87, 0x6B, 0xF8, 0x56, 0x10},
	GFSK100k:  {0x5B, 0xF8, 0x13, 0x22, 0xF8, 0x47, 0x07, 0x0C, 0x18, 0x1D, 0x1C, 0xC7, 0x00, 0xB2, 0x87, 0x6B, 0xF8, 0xB6, 0x10},
	MSK250k:   {0x2D, 0x3B, 0x73, 0x22, 0xF8, 0x00, 0x07, 0x0C, 0x18, 0x1D, 0x1C, 0xC7, 0x00, 0xB2, 0x87, 0x6B, 0xF8, 0xB6, 0x10},
	MSK500k:   {0x0E, 0x3B, 0x73, 0x22, 0xF8, 0x00, 0x07, 0x0C, 0x18, 0x1D, 0x1C, 0xC7, 0x00, 0xB0, 0x87, 0x6B, 0xF8, 0xB6, 0x10},
	OOK4_8k:   {0x87, 0x83, 0x33, 0x22, 0xF8, 0x15, 0x07, 0x0C, 0x18, 0x16, 0x6C, 0x03, 0x40, 0x91, 0x87, 0x6B, 0xF8, 0x56, 0x11},
}

// modeBaud is the nominal datarate each table encodes
var modeBaud = map[Mode]float64{
	GFSK1_2k:  1200,
	GFSK38_4k: 38400,
	GFSK100k:  100000,
	MSK250k:   250000,
	MSK500k:   500000,
	OOK4_8k:   4800,
}

// ModeRegisters returns the register image for m
func ModeRegisters(m Mode) (ModeTable, error) {
	t, ok := modeTables[m]
	if !ok {
		return ModeTable{}, fmt.Errorf("%v: %w", m, ErrUnsupportedMode)
	}
	return t, nil
}

// NominalBaud returns the datarate m is designed for
func NominalBaud(m Mode) (float64, error) {
	b, ok := modeBaud[m]
	if !ok {
		return 0, fmt.Errorf("%v: %w", m, ErrUnsupportedMode)
	}
	return b, nil
}

// Modes lists every supported Mode in declaration order
func Modes() []Mode {
	return []Mode{GFSK1_2k, GFSK38_4k, GFSK100k, MSK250k, MSK500k, OOK4_8k}
}
