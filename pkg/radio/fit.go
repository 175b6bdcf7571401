package radio

import (
	"fmt"
	"math"
)

// Supported datarate range in baud
const (
	MinDatarate = 600
	MaxDatarate = 500000
)

// DatarateRegs fits a baud rate to DRATE_E (MDMCFG4[3:0]) and DRATE_M
// (MDMCFG3). A mantissa that rounds up to 256 carries into the exponent.
func DatarateRegs(baud, crystalHz int) (exp, mant uint8, err error) {
	if baud < MinDatarate || baud > MaxDatarate {
		return 0, 0, fmt.Errorf("%d baud: %w", baud, ErrDatarateOutOfRange)
	}
	b := float64(baud)
	x := float64(crystalHz)

	e := math.Floor(math.Log2(b * (1 << 20) / x))
	m := math.Round(b*(1<<28)/(x*math.Exp2(e)) - 256)
	if m >= 256 {
		m = 0
		e++
	}

	return uint8(int(e)) & 0x0F, uint8(int(m)), nil
}

// DatarateFromRegs returns the baud rate encoded by DRATE_E and DRATE_M
func DatarateFromRegs(exp, mant uint8, crystalHz int) float64 {
	return (256 + float64(mant)) * math.Exp2(float64(exp&0x0F)) * float64(crystalHz) / (1 << 28)
}

// deviationHz is the deviation DEVIATN encodes for exponent e and mantissa m
func deviationHz(e, m uint8, crystalHz int) float64 {
	return float64(crystalHz) / (1 << 17) * float64(8+m) * math.Exp2(float64(e))
}

// DeviationReg finds the DEVIATION_E and DEVIATION_M pair closest to devHz.
// The search is exponent-major ascending and keeps the first candidate on
// a tie, so equal errors resolve to the lowest exponent then mantissa.
func DeviationReg(devHz, crystalHz int) (exp, mant uint8) {
	closest := math.MaxInt
	for e := uint8(0); e < 8; e++ {
		for m := uint8(0); m < 8; m++ {
			diff := devHz - int(deviationHz(e, m, crystalHz))
			if diff < 0 {
				diff = -diff
			}
			if diff < closest {
				closest = diff
				exp, mant = e, m
			}
		}
	}
	return exp, mant
}

// DeviationFromReg returns the deviation in Hz a DEVIATN value encodes
func DeviationFromReg(deviatn uint8, crystalHz int) float64 {
	return deviationHz((deviatn>>4)&0x07, deviatn&0x07, crystalHz)
}
