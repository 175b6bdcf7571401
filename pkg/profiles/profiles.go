// Package profiles provides the fixed radio configurations the link uses:
// modulation modes burst-written over the modem block, carrier bands and
// their PA tables. Each table is a datasheet-derived register image; there
// is no partial reconfiguration.
package profiles

import (
	"errors"
	"fmt"
	"strings"
)

// CrystalHz is the crystal frequency of common CC1101 modules
const CrystalHz = 26000000

var (
	// ErrUnsupportedMode indicates a Mode outside the known table set
	ErrUnsupportedMode = errors.New("unsupported modulation mode")

	// ErrUnsupportedBand indicates a Band outside the known table set
	ErrUnsupportedBand = errors.New("unsupported frequency band")
)

// Mode is a predefined modulation and datarate combination
type Mode int

const (
	GFSK1_2k Mode = iota
	GFSK38_4k
	GFSK100k
	MSK250k
	MSK500k
	OOK4_8k
)

var modeNames = map[Mode]string{
	GFSK1_2k:  "gfsk-1.2k",
	GFSK38_4k: "gfsk-38.4k",
	GFSK100k:  "gfsk-100k",
	MSK250k:   "msk-250k",
	MSK500k:   "msk-500k",
	OOK4_8k:   "ook-4.8k",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names printed by Mode.String, case insensitive
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedMode)
}

// MarshalText lets Mode appear by name in JSON configuration
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("%d: %w", int(m), ErrUnsupportedMode)
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Band is a coarse carrier frequency selection
type Band int

const (
	Band315 Band = iota
	Band433
	Band868
	Band915
)

var bandNames = map[Band]string{
	Band315: "315",
	Band433: "433",
	Band868: "868",
	Band915: "915",
}

func (b Band) String() string {
	if name, ok := bandNames[b]; ok {
		return name + "MHz"
	}
	return fmt.Sprintf("Band(%d)", int(b))
}

// ParseBand accepts "868", "868MHz" and similar
func ParseBand(s string) (Band, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "mhz")
	for b, name := range bandNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedBand)
}

func (b Band) MarshalText() ([]byte, error) {
	if _, ok := bandNames[b]; !ok {
		return nil, fmt.Errorf("%d: %w", int(b), ErrUnsupportedBand)
	}
	return []byte(bandNames[b]), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	v, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Preamble lengths (MDMCFG1[6:4] values)
const (
	Preamble2  = 0x00 << 4
	Preamble3  = 0x01 << 4
	Preamble4  = 0x02 << 4
	Preamble6  = 0x03 << 4
	Preamble8  = 0x04 << 4
	Preamble12 = 0x05 << 4
	Preamble16 = 0x06 << 4
	Preamble24 = 0x07 << 4
)

// PreambleBytesToReg converts a preamble byte count to its MDMCFG1 field.
// Counts without an encoding return false.
func PreambleBytesToReg(bytes uint8) (uint8, bool) {
	switch bytes {
	case 2:
		return Preamble2, true
	case 3:
		return Preamble3, true
	case 4:
		return Preamble4, true
	case 6:
		return Preamble6, true
	case 8:
		return Preamble8, true
	case 12:
		return Preamble12, true
	case 16:
		return Preamble16, true
	case 24:
		return Preamble24, true
	}
	return 0, false
}
