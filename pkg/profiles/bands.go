package profiles

import "fmt"

// FreqRegs holds FREQ2, FREQ1 and FREQ0 for a band
type FreqRegs [3]byte

var bandFreq = map[Band]FreqRegs{
	Band315: {0x0C, 0x1D, 0x89},
	Band433: {0x10, 0xB0, 0x71},
	Band868: {0x21, 0x65, 0x6A},
	Band915: {0x23, 0x31, 0x3B},
}

// PA tables per band. FREND0 PA_POWER selects an entry, so an OutputPower
// ordinal indexes them directly.
var bandPA = map[Band][8]byte{
	Band315: {0x12, 0x0D, 0x1C, 0x34, 0x51, 0x85, 0xCB, 0xC2},
	Band433: {0x12, 0x0E, 0x1D, 0x34, 0x60, 0x84, 0xC8, 0xC0},
	Band868: {0x03, 0x0F, 0x1E, 0x27, 0x50, 0x81, 0xCB, 0xC2},
	Band915: {0x03, 0x0E, 0x1E, 0x27, 0x8E, 0xCD, 0xC7, 0xC0},
}

// BandRegisters returns the FREQ2/1/0 triple for b
func BandRegisters(b Band) (FreqRegs, error) {
	f, ok := bandFreq[b]
	if !ok {
		return FreqRegs{}, fmt.Errorf("%v: %w", b, ErrUnsupportedBand)
	}
	return f, nil
}

// PATable returns the power amplifier table for b
func PATable(b Band) ([8]byte, error) {
	t, ok := bandPA[b]
	if !ok {
		return [8]byte{}, fmt.Errorf("%v: %w", b, ErrUnsupportedBand)
	}
	return t, nil
}

// Bands lists every supported Band in declaration order
func Bands() []Band {
	return []Band{Band315, Band433, Band868, Band915}
}
