package registers

import (
	"fmt"

	"github.com/herlein/cc1101/pkg/transport"
)

// Strobe sends a command strobe
func Strobe(t transport.Transport, command uint8) error {
	return t.Strobe(command)
}

// GetRadioState reads MARCSTATE and returns its 5-bit state field
func GetRadioState(t transport.Transport) (RadioState, error) {
	raw, err := t.ReadRegister(RegMARCSTATE)
	if err != nil {
		return 0, fmt.Errorf("failed to read radio state: %w", err)
	}
	return StateFromMARCSTATE(raw), nil
}

// ConfigBytes returns the configuration registers 0x00-0x2E in address order
func (r *RegisterMap) ConfigBytes() []byte {
	return []byte{
		r.IOCFG2, r.IOCFG1, r.IOCFG0, r.FIFOTHR,
		r.SYNC1, r.SYNC0,
		r.PKTLEN, r.PKTCTRL1, r.PKTCTRL0, r.ADDR, r.CHANNR,
		r.FSCTRL1, r.FSCTRL0,
		r.FREQ2, r.FREQ1, r.FREQ0,
		r.MDMCFG4, r.MDMCFG3, r.MDMCFG2, r.MDMCFG1, r.MDMCFG0,
		r.DEVIATN,
		r.MCSM2, r.MCSM1, r.MCSM0,
		r.FOCCFG, r.BSCFG,
		r.AGCCTRL2, r.AGCCTRL1, r.AGCCTRL0,
		r.WOREVT1, r.WOREVT0, r.WORCTRL,
		r.FREND1, r.FREND0,
		r.FSCAL3, r.FSCAL2, r.FSCAL1, r.FSCAL0,
		r.RCCTRL1, r.RCCTRL0,
		r.FSTEST, r.PTEST, r.AGCTEST,
		r.TEST2, r.TEST1, r.TEST0,
	}
}

// SetConfigBytes fills the configuration registers from a 0x00-based block
func (r *RegisterMap) SetConfigBytes(b []byte) error {
	if len(b) != NumConfigRegisters {
		return fmt.Errorf("config block has %d bytes, want %d", len(b), NumConfigRegisters)
	}
	dst := []*uint8{
		&r.IOCFG2, &r.IOCFG1, &r.IOCFG0, &r.FIFOTHR,
		&r.SYNC1, &r.SYNC0,
		&r.PKTLEN, &r.PKTCTRL1, &r.PKTCTRL0, &r.ADDR, &r.CHANNR,
		&r.FSCTRL1, &r.FSCTRL0,
		&r.FREQ2, &r.FREQ1, &r.FREQ0,
		&r.MDMCFG4, &r.MDMCFG3, &r.MDMCFG2, &r.MDMCFG1, &r.MDMCFG0,
		&r.DEVIATN,
		&r.MCSM2, &r.MCSM1, &r.MCSM0,
		&r.FOCCFG, &r.BSCFG,
		&r.AGCCTRL2, &r.AGCCTRL1, &r.AGCCTRL0,
		&r.WOREVT1, &r.WOREVT0, &r.WORCTRL,
		&r.FREND1, &r.FREND0,
		&r.FSCAL3, &r.FSCAL2, &r.FSCAL1, &r.FSCAL0,
		&r.RCCTRL1, &r.RCCTRL0,
		&r.FSTEST, &r.PTEST, &r.AGCTEST,
		&r.TEST2, &r.TEST1, &r.TEST0,
	}
	for i, p := range dst {
		*p = b[i]
	}
	return nil
}

// ReadAllRegisters reads the configuration block, the PA table and the
// status registers into a RegisterMap
func ReadAllRegisters(t transport.Transport) (*RegisterMap, error) {
	reg := &RegisterMap{}

	block, err := t.ReadBurst(RegIOCFG2, NumConfigRegisters)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration block: %w", err)
	}
	if err := reg.SetConfigBytes(block); err != nil {
		return nil, err
	}

	pa, err := t.ReadBurst(RegPATABLE, len(reg.PA_TABLE))
	if err != nil {
		return nil, fmt.Errorf("failed to read PA table: %w", err)
	}
	copy(reg.PA_TABLE[:], pa)

	// Status registers cannot be burst read
	status := []struct {
		addr byte
		dst  *uint8
	}{
		{RegPARTNUM, &reg.PARTNUM},
		{RegVERSION, &reg.VERSION},
		{RegFREQEST, &reg.FREQEST},
		{RegLQI, &reg.LQI},
		{RegRSSI, &reg.RSSI},
		{RegMARCSTATE, &reg.MARCSTATE},
		{RegPKTSTATUS, &reg.PKTSTATUS},
		{RegVCO_VC_DAC, &reg.VCO_VC_DAC},
		{RegTXBYTES, &reg.TXBYTES},
		{RegRXBYTES, &reg.RXBYTES},
	}
	for _, s := range status {
		v, err := t.ReadRegister(s.addr)
		if err != nil {
			return nil, fmt.Errorf("failed to read status 0x%02X: %w", s.addr, err)
		}
		*s.dst = v
	}

	return reg, nil
}

// WriteAllRegisters writes the configuration block and the PA table.
// Status registers are read-only and ignored.
func WriteAllRegisters(t transport.Transport, reg *RegisterMap) error {
	if err := t.WriteBurst(RegIOCFG2, reg.ConfigBytes()); err != nil {
		return fmt.Errorf("failed to write configuration block: %w", err)
	}
	if err := t.WriteBurst(RegPATABLE, reg.PA_TABLE[:]); err != nil {
		return fmt.Errorf("failed to write PA table: %w", err)
	}
	return nil
}

// GetFrequency calculates the carrier frequency in Hz from the register values
func GetFrequency(reg *RegisterMap, crystalHz float64) float64 {
	freq := uint32(reg.FREQ2)<<16 | uint32(reg.FREQ1)<<8 | uint32(reg.FREQ0)
	return float64(freq) * crystalHz / 65536.0
}

// SetFrequency calculates the FREQ registers for a given frequency
func SetFrequency(reg *RegisterMap, frequencyHz float64, crystalHz float64) {
	freq := uint32(frequencyHz * 65536.0 / crystalHz)
	reg.FREQ2 = uint8((freq >> 16) & 0x3F)
	reg.FREQ1 = uint8((freq >> 8) & 0xFF)
	reg.FREQ0 = uint8(freq & 0xFF)
}

// GetSyncWord returns the 16-bit sync word from the register map
func GetSyncWord(reg *RegisterMap) uint16 {
	return uint16(reg.SYNC1)<<8 | uint16(reg.SYNC0)
}

// SetSyncWord sets the 16-bit sync word in the register map
func SetSyncWord(reg *RegisterMap, syncWord uint16) {
	reg.SYNC1 = uint8(syncWord >> 8)
	reg.SYNC0 = uint8(syncWord)
}

// GetModulation returns the modulation format from MDMCFG2
func GetModulation(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & MaskModulation
}

// SetModulation sets the modulation format in MDMCFG2
func SetModulation(reg *RegisterMap, mod uint8) {
	reg.MDMCFG2 = (reg.MDMCFG2 &^ MaskModulation) | (mod & MaskModulation)
}

// GetSyncMode returns the sync mode from MDMCFG2
func GetSyncMode(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & MaskSyncMode
}

// SetSyncMode sets the sync mode in MDMCFG2
func SetSyncMode(reg *RegisterMap, mode uint8) {
	reg.MDMCFG2 = (reg.MDMCFG2 &^ MaskSyncMode) | (mode & MaskSyncMode)
}

// ModulationName returns a display name for a MDMCFG2 modulation field
func ModulationName(mod uint8) string {
	switch mod & MaskModulation {
	case Mod2FSK:
		return "2-FSK"
	case ModGFSK:
		return "GFSK"
	case ModASKOOK:
		return "ASK/OOK"
	case Mod4FSK:
		return "4-FSK"
	case ModMSK:
		return "MSK"
	}
	return "UNKNOWN"
}
