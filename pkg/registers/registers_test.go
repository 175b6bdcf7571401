package registers_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/registers"
)

func TestConfigBytesOrder(t *testing.T) {
	block := make([]byte, registers.NumConfigRegisters)
	for i := range block {
		block[i] = byte(i)
	}
	var reg registers.RegisterMap
	if err := reg.SetConfigBytes(block); err != nil {
		t.Fatal(err)
	}
	if reg.CHANNR != registers.RegCHANNR || reg.FREND0 != registers.RegFREND0 || reg.TEST0 != registers.RegTEST0 {
		t.Errorf("fields out of address order: CHANNR=%02X FREND0=%02X TEST0=%02X", reg.CHANNR, reg.FREND0, reg.TEST0)
	}
	if !bytes.Equal(reg.ConfigBytes(), block) {
		t.Errorf("ConfigBytes %X", reg.ConfigBytes())
	}
	if err := reg.SetConfigBytes(block[1:]); err == nil {
		t.Error("short block accepted")
	}
}

func TestReadWriteAllRegisters(t *testing.T) {
	src := chipsim.New("src", 0)
	if err := src.WriteRegister(registers.RegSYNC1, 0xAB); err != nil {
		t.Fatal(err)
	}
	reg, err := registers.ReadAllRegisters(src)
	if err != nil {
		t.Fatal(err)
	}
	if reg.PARTNUM != registers.PartNumCC1101 || reg.VERSION != registers.VersionCC1101 {
		t.Errorf("identification %02X/%02X", reg.PARTNUM, reg.VERSION)
	}
	if registers.StateFromMARCSTATE(reg.MARCSTATE) != registers.StateIDLE {
		t.Errorf("MARCSTATE %02X", reg.MARCSTATE)
	}
	if registers.GetSyncWord(reg) != 0xAB91 {
		t.Errorf("sync word %04X", registers.GetSyncWord(reg))
	}

	registers.SetSyncWord(reg, 0x1234)
	reg.PA_TABLE = [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}
	dst := chipsim.New("dst", 0)
	if err := registers.WriteAllRegisters(dst, reg); err != nil {
		t.Fatal(err)
	}
	if dst.Register(registers.RegSYNC1) != 0x12 || dst.Register(registers.RegSYNC0) != 0x34 {
		t.Error("sync word not written")
	}
	if dst.PATable() != reg.PA_TABLE {
		t.Errorf("PA table %X", dst.PATable())
	}
}

func TestFrequency(t *testing.T) {
	var reg registers.RegisterMap
	registers.SetFrequency(&reg, 868e6, 26e6)
	if reg.FREQ2 != 0x21 || reg.FREQ1 != 0x62 || reg.FREQ0 != 0x76 {
		t.Errorf("FREQ %02X %02X %02X", reg.FREQ2, reg.FREQ1, reg.FREQ0)
	}
	if f := registers.GetFrequency(&reg, 26e6); math.Abs(f-868e6) > 400 {
		t.Errorf("read back %.0f Hz", f)
	}
}

func TestFieldHelpers(t *testing.T) {
	reg := registers.RegisterMap{MDMCFG2: 0x13}
	if registers.ModulationName(registers.GetModulation(&reg)) != "GFSK" {
		t.Errorf("modulation %02X", registers.GetModulation(&reg))
	}
	registers.SetModulation(&reg, registers.ModMSK)
	registers.SetSyncMode(&reg, registers.Sync30of32)
	if reg.MDMCFG2 != 0x73 {
		t.Errorf("MDMCFG2 = %02X, want 73", reg.MDMCFG2)
	}
	if registers.GetSyncMode(&reg) != registers.Sync30of32 {
		t.Error("sync mode")
	}
}

func TestStateFromMARCSTATE(t *testing.T) {
	if s := registers.StateFromMARCSTATE(0xED); s != registers.StateRX {
		t.Errorf("got %v, want RX", s)
	}
	if registers.RadioState(0x1F).String() != "UNKNOWN" {
		t.Error("unmapped state should print UNKNOWN")
	}
}
