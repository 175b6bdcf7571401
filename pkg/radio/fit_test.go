package radio

import (
	"errors"
	"math"
	"testing"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/registers"
)

func TestDatarateRegs(t *testing.T) {
	tests := []struct {
		baud     int
		crystal  int
		wantExp  uint8
		wantMant uint8
	}{
		{100000, 26000000, 11, 248},
		{1200, 26000000, 5, 131},
		{38400, 26000000, 10, 131},
		{250000, 26000000, 13, 59},
		{500000, 26000000, 14, 59},
		// mantissa rounds up to 256 and carries
		{25390, 26000000, 10, 0},
		{50781, 26000000, 11, 0},
		{101562, 26000000, 12, 0},
		{203124, 26000000, 13, 0},
	}
	for _, tt := range tests {
		exp, mant, err := DatarateRegs(tt.baud, tt.crystal)
		if err != nil {
			t.Fatalf("%d baud: %v", tt.baud, err)
		}
		if exp != tt.wantExp || mant != tt.wantMant {
			t.Errorf("%d baud: got e=%d m=%d, want e=%d m=%d", tt.baud, exp, mant, tt.wantExp, tt.wantMant)
		}
		got := DatarateFromRegs(exp, mant, tt.crystal)
		if math.Abs(got-float64(tt.baud))/float64(tt.baud) > 0.01 {
			t.Errorf("%d baud: registers encode %.1f baud", tt.baud, got)
		}
	}
}

func TestDatarateRange(t *testing.T) {
	for _, baud := range []int{0, 599, 500001, -1} {
		if _, _, err := DatarateRegs(baud, profiles.CrystalHz); !errors.Is(err, ErrDatarateOutOfRange) {
			t.Errorf("%d baud: got %v, want ErrDatarateOutOfRange", baud, err)
		}
	}
	for _, baud := range []int{MinDatarate, MaxDatarate} {
		if _, _, err := DatarateRegs(baud, profiles.CrystalHz); err != nil {
			t.Errorf("%d baud: %v", baud, err)
		}
	}
}

func TestSetDatarateOutOfRangeLeavesRegisters(t *testing.T) {
	chip := chipsim.New("dut", 0)
	c := NewConfigurator(chip)
	before4, before3 := chip.Register(registers.RegMDMCFG4), chip.Register(registers.RegMDMCFG3)

	if err := c.SetDatarate(100, profiles.CrystalHz); !errors.Is(err, ErrDatarateOutOfRange) {
		t.Fatalf("got %v, want ErrDatarateOutOfRange", err)
	}
	if chip.Register(registers.RegMDMCFG4) != before4 || chip.Register(registers.RegMDMCFG3) != before3 {
		t.Error("registers changed on rejected datarate")
	}
}

func TestSetDataratePreservesBandwidth(t *testing.T) {
	chip := chipsim.New("dut", 0)
	c := NewConfigurator(chip)
	if err := chip.WriteRegister(registers.RegMDMCFG4, 0xA0); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDatarate(100000, profiles.CrystalHz); err != nil {
		t.Fatal(err)
	}
	if got := chip.Register(registers.RegMDMCFG4); got != 0xAB {
		t.Errorf("MDMCFG4 = %02X, want AB", got)
	}
	if got := chip.Register(registers.RegMDMCFG3); got != 248 {
		t.Errorf("MDMCFG3 = %d, want 248", got)
	}
	rate, err := c.Datarate(profiles.CrystalHz)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rate-100000) > 100 {
		t.Errorf("read back %.0f baud", rate)
	}
}

func TestModeTablesMatchNominalBaud(t *testing.T) {
	for _, m := range profiles.Modes() {
		table, err := profiles.ModeRegisters(m)
		if err != nil {
			t.Fatal(err)
		}
		baud, _ := profiles.NominalBaud(m)
		exp, mant, err := DatarateRegs(int(baud), profiles.CrystalHz)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		if table[0]&registers.MaskDatarateExp != exp || table[1] != mant {
			t.Errorf("%v: table e=%d m=%d, fitted e=%d m=%d",
				m, table[0]&registers.MaskDatarateExp, table[1], exp, mant)
		}
	}
}

// bruteDeviation scans every DEVIATN value and keeps the first closest
func bruteDeviation(devHz, crystalHz int) uint8 {
	best, bestDiff := uint8(0), math.MaxInt
	for v := 0; v < 0x80; v++ {
		if v&0x08 != 0 {
			continue
		}
		got := int(float64(crystalHz) / (1 << 17) * float64(8+v&0x07) * math.Exp2(float64(v>>4)))
		diff := devHz - got
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = uint8(v), diff
		}
	}
	return best
}

func TestDeviationReg(t *testing.T) {
	tests := []struct {
		name    string
		devHz   int
		crystal int
		wantE   uint8
		wantM   uint8
	}{
		{"47kHz at 26MHz", 47000, 26000000, 4, 7},
		{"tie across exponents keeps lower", 15500, 131072000, 0, 7},
		{"tie within exponent keeps lower mantissa", 9500, 131072000, 0, 1},
		{"below range clamps to smallest", 0, 26000000, 0, 0},
		{"above range clamps to largest", 1000000, 26000000, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := DeviationReg(tt.devHz, tt.crystal)
			if e != tt.wantE || m != tt.wantM {
				t.Errorf("got e=%d m=%d, want e=%d m=%d", e, m, tt.wantE, tt.wantM)
			}
			if ref := bruteDeviation(tt.devHz, tt.crystal); ref != e<<4|m {
				t.Errorf("reference scan picked %02X, got %02X", ref, e<<4|m)
			}
		})
	}
}

func TestDeviationRoundTrip(t *testing.T) {
	chip := chipsim.New("dut", 0)
	c := NewConfigurator(chip)
	if err := c.SetDeviation(47000, profiles.CrystalHz); err != nil {
		t.Fatal(err)
	}
	if got := chip.Register(registers.RegDEVIATN); got != 0x47 {
		t.Errorf("DEVIATN = %02X, want 47", got)
	}
	dev, err := c.Deviation(profiles.CrystalHz)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dev-47607) > 1 {
		t.Errorf("deviation %.1f Hz, want about 47607", dev)
	}
}
