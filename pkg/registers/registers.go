package registers

// RegisterMap holds all CC1101 configuration registers (0x00-0x2E), the PA
// table and the read-only status registers.
type RegisterMap struct {
	// GDOx pin configuration
	IOCFG2 uint8 `json:"iocfg2"` // 0x00
	IOCFG1 uint8 `json:"iocfg1"` // 0x01
	IOCFG0 uint8 `json:"iocfg0"` // 0x02

	FIFOTHR uint8 `json:"fifothr"` // 0x03

	// Sync word
	SYNC1 uint8 `json:"sync1"` // 0x04
	SYNC0 uint8 `json:"sync0"` // 0x05

	// Packet control
	PKTLEN   uint8 `json:"pktlen"`   // 0x06
	PKTCTRL1 uint8 `json:"pktctrl1"` // 0x07
	PKTCTRL0 uint8 `json:"pktctrl0"` // 0x08
	ADDR     uint8 `json:"addr"`     // 0x09
	CHANNR   uint8 `json:"channr"`   // 0x0A

	// Frequency synthesizer
	FSCTRL1 uint8 `json:"fsctrl1"` // 0x0B
	FSCTRL0 uint8 `json:"fsctrl0"` // 0x0C

	// Frequency control
	FREQ2 uint8 `json:"freq2"` // 0x0D
	FREQ1 uint8 `json:"freq1"` // 0x0E
	FREQ0 uint8 `json:"freq0"` // 0x0F

	// Modem configuration
	MDMCFG4 uint8 `json:"mdmcfg4"` // 0x10
	MDMCFG3 uint8 `json:"mdmcfg3"` // 0x11
	MDMCFG2 uint8 `json:"mdmcfg2"` // 0x12
	MDMCFG1 uint8 `json:"mdmcfg1"` // 0x13
	MDMCFG0 uint8 `json:"mdmcfg0"` // 0x14
	DEVIATN uint8 `json:"deviatn"` // 0x15

	// Main radio control state machine
	MCSM2 uint8 `json:"mcsm2"` // 0x16
	MCSM1 uint8 `json:"mcsm1"` // 0x17
	MCSM0 uint8 `json:"mcsm0"` // 0x18

	// Frequency offset compensation
	FOCCFG uint8 `json:"foccfg"` // 0x19
	BSCFG  uint8 `json:"bscfg"`  // 0x1A

	// AGC control
	AGCCTRL2 uint8 `json:"agcctrl2"` // 0x1B
	AGCCTRL1 uint8 `json:"agcctrl1"` // 0x1C
	AGCCTRL0 uint8 `json:"agcctrl0"` // 0x1D

	// Wake on radio
	WOREVT1 uint8 `json:"worevt1"` // 0x1E
	WOREVT0 uint8 `json:"worevt0"` // 0x1F
	WORCTRL uint8 `json:"worctrl"` // 0x20

	// Front end configuration
	FREND1 uint8 `json:"frend1"` // 0x21
	FREND0 uint8 `json:"frend0"` // 0x22

	// Frequency synthesizer calibration
	FSCAL3 uint8 `json:"fscal3"` // 0x23
	FSCAL2 uint8 `json:"fscal2"` // 0x24
	FSCAL1 uint8 `json:"fscal1"` // 0x25
	FSCAL0 uint8 `json:"fscal0"` // 0x26

	// RC oscillator
	RCCTRL1 uint8 `json:"rcctrl1"` // 0x27
	RCCTRL0 uint8 `json:"rcctrl0"` // 0x28

	// Test registers
	FSTEST  uint8 `json:"fstest"`  // 0x29
	PTEST   uint8 `json:"ptest"`   // 0x2A
	AGCTEST uint8 `json:"agctest"` // 0x2B
	TEST2   uint8 `json:"test2"`   // 0x2C
	TEST1   uint8 `json:"test1"`   // 0x2D
	TEST0   uint8 `json:"test0"`   // 0x2E

	// Power amplifier table, index 0 first
	PA_TABLE [8]uint8 `json:"pa_table"` // 0x3E (burst)

	// Read-only status registers
	PARTNUM    uint8 `json:"partnum"`    // 0xF0
	VERSION    uint8 `json:"version"`    // 0xF1
	FREQEST    uint8 `json:"freqest"`    // 0xF2
	LQI        uint8 `json:"lqi"`        // 0xF3
	RSSI       uint8 `json:"rssi"`       // 0xF4
	MARCSTATE  uint8 `json:"marcstate"`  // 0xF5
	PKTSTATUS  uint8 `json:"pktstatus"`  // 0xF8
	VCO_VC_DAC uint8 `json:"vco_vc_dac"` // 0xF9
	TXBYTES    uint8 `json:"txbytes"`    // 0xFA
	RXBYTES    uint8 `json:"rxbytes"`    // 0xFB
}

// RadioState represents the main radio control state (MARCSTATE[4:0])
type RadioState uint8

const (
	StateSLEEP       RadioState = 0x00
	StateIDLE        RadioState = 0x01
	StateXOFF        RadioState = 0x02
	StateVCOON_MC    RadioState = 0x03
	StateREGON_MC    RadioState = 0x04
	StateMANCAL      RadioState = 0x05
	StateVCOON       RadioState = 0x06
	StateREGON       RadioState = 0x07
	StateSTARTCAL    RadioState = 0x08
	StateBWBOOST     RadioState = 0x09
	StateFS_LOCK     RadioState = 0x0A
	StateIFADCON     RadioState = 0x0B
	StateENDCAL      RadioState = 0x0C
	StateRX          RadioState = 0x0D
	StateRX_END      RadioState = 0x0E
	StateRX_RST      RadioState = 0x0F
	StateTXRX_SWITCH RadioState = 0x10
	StateRXFIFO_OVF  RadioState = 0x11
	StateFSTXON      RadioState = 0x12
	StateTX          RadioState = 0x13
	StateTX_END      RadioState = 0x14
	StateRXTX_SWITCH RadioState = 0x15
	StateTXFIFO_UNF  RadioState = 0x16

	marcStateMask RadioState = 0x1F
)

var stateNames = map[RadioState]string{
	StateSLEEP:       "SLEEP",
	StateIDLE:        "IDLE",
	StateXOFF:        "XOFF",
	StateVCOON_MC:    "VCOON_MC",
	StateREGON_MC:    "REGON_MC",
	StateMANCAL:      "MANCAL",
	StateVCOON:       "VCOON",
	StateREGON:       "REGON",
	StateSTARTCAL:    "STARTCAL",
	StateBWBOOST:     "BWBOOST",
	StateFS_LOCK:     "FS_LOCK",
	StateIFADCON:     "IFADCON",
	StateENDCAL:      "ENDCAL",
	StateRX:          "RX",
	StateRX_END:      "RX_END",
	StateRX_RST:      "RX_RST",
	StateTXRX_SWITCH: "TXRX_SWITCH",
	StateRXFIFO_OVF:  "RXFIFO_OVERFLOW",
	StateFSTXON:      "FSTXON",
	StateTX:          "TX",
	StateTX_END:      "TX_END",
	StateRXTX_SWITCH: "RXTX_SWITCH",
	StateTXFIFO_UNF:  "TXFIFO_UNDERFLOW",
}

// String returns a human-readable name for the radio state
func (s RadioState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// StateFromMARCSTATE masks a raw MARCSTATE read down to its 5-bit state field
func StateFromMARCSTATE(raw uint8) RadioState {
	return RadioState(raw) & marcStateMask
}

// Configuration register addresses
const (
	RegIOCFG2   = 0x00
	RegIOCFG1   = 0x01
	RegIOCFG0   = 0x02
	RegFIFOTHR  = 0x03
	RegSYNC1    = 0x04
	RegSYNC0    = 0x05
	RegPKTLEN   = 0x06
	RegPKTCTRL1 = 0x07
	RegPKTCTRL0 = 0x08
	RegADDR     = 0x09
	RegCHANNR   = 0x0A
	RegFSCTRL1  = 0x0B
	RegFSCTRL0  = 0x0C
	RegFREQ2    = 0x0D
	RegFREQ1    = 0x0E
	RegFREQ0    = 0x0F
	RegMDMCFG4  = 0x10
	RegMDMCFG3  = 0x11
	RegMDMCFG2  = 0x12
	RegMDMCFG1  = 0x13
	RegMDMCFG0  = 0x14
	RegDEVIATN  = 0x15
	RegMCSM2    = 0x16
	RegMCSM1    = 0x17
	RegMCSM0    = 0x18
	RegFOCCFG   = 0x19
	RegBSCFG    = 0x1A
	RegAGCCTRL2 = 0x1B
	RegAGCCTRL1 = 0x1C
	RegAGCCTRL0 = 0x1D
	RegWOREVT1  = 0x1E
	RegWOREVT0  = 0x1F
	RegWORCTRL  = 0x20
	RegFREND1   = 0x21
	RegFREND0   = 0x22
	RegFSCAL3   = 0x23
	RegFSCAL2   = 0x24
	RegFSCAL1   = 0x25
	RegFSCAL0   = 0x26
	RegRCCTRL1  = 0x27
	RegRCCTRL0  = 0x28
	RegFSTEST   = 0x29
	RegPTEST    = 0x2A
	RegAGCTEST  = 0x2B
	RegTEST2    = 0x2C
	RegTEST1    = 0x2D
	RegTEST0    = 0x2E

	// NumConfigRegisters is the size of the configuration block 0x00-0x2E
	NumConfigRegisters = 0x2F
)

// Multi-byte access points
const (
	RegPATABLE = 0x3E
	RegFIFO    = 0x3F
)

// Status register addresses. They share 0x30-0x3D with the strobes and are
// only reachable with the burst bit set, so the values below carry it.
const (
	RegPARTNUM        = 0xF0
	RegVERSION        = 0xF1
	RegFREQEST        = 0xF2
	RegLQI            = 0xF3
	RegRSSI           = 0xF4
	RegMARCSTATE      = 0xF5
	RegWORTIME1       = 0xF6
	RegWORTIME0       = 0xF7
	RegPKTSTATUS      = 0xF8
	RegVCO_VC_DAC     = 0xF9
	RegTXBYTES        = 0xFA
	RegRXBYTES        = 0xFB
	RegRCCTRL1_STATUS = 0xFC
	RegRCCTRL0_STATUS = 0xFD
)

// Command strobes
const (
	StrobeSRES    = 0x30 // Reset chip
	StrobeSFSTXON = 0x31 // Enable and calibrate frequency synthesizer
	StrobeSXOFF   = 0x32 // Turn off crystal oscillator
	StrobeSCAL    = 0x33 // Calibrate frequency synthesizer and turn it off
	StrobeSRX     = 0x34 // Enable RX
	StrobeSTX     = 0x35 // Enable TX
	StrobeSIDLE   = 0x36 // Exit RX/TX, turn off frequency synthesizer
	StrobeSAFC    = 0x37 // AFC adjustment of frequency synthesizer
	StrobeSWOR    = 0x38 // Start automatic RX polling sequence (Wake-on-Radio)
	StrobeSPWD    = 0x39 // Enter power down mode when CSn goes high
	StrobeSFRX    = 0x3A // Flush the RX FIFO buffer
	StrobeSFTX    = 0x3B // Flush the TX FIFO buffer
	StrobeSWORRST = 0x3C // Reset real time clock to Event1 value
	StrobeSNOP    = 0x3D // No operation
)

// FIFO geometry and status bits
const (
	FIFOSize         = 64
	RXBytesMask      = 0x7F // RXBYTES[6:0] NUM_RXBYTES
	RXOverflow       = 0x80 // RXBYTES[7] RXFIFO_OVERFLOW
	StatusCRCOK      = 0x80 // LQI status byte bit 7
	StatusLQIMask    = 0x7F
	PKTStatusGDO2    = 0x04 // PKTSTATUS[2] current GDO2 value
	IOCFGSyncWord    = 0x06 // GDOx asserts on sync word, deasserts at end of packet
	IOCFGPacketCRCOK = 0x07 // GDOx asserts when a packet with CRC OK is received
)

// Modulation formats (MDMCFG2[6:4])
const (
	Mod2FSK   = 0x00
	ModGFSK   = 0x10
	ModASKOOK = 0x30
	Mod4FSK   = 0x40
	ModMSK    = 0x70
)

// Sync mode (MDMCFG2[2:0])
const (
	SyncNone          = 0x00 // No preamble/sync
	Sync15of16        = 0x01 // 15/16 sync word bits detected
	Sync16of16        = 0x02 // 16/16 sync word bits detected
	Sync30of32        = 0x03 // 30/32 sync word bits detected
	SyncCarrier       = 0x04 // Carrier-sense above threshold
	SyncCarrier15of16 = 0x05 // Carrier-sense + 15/16 sync
	SyncCarrier16of16 = 0x06 // Carrier-sense + 16/16 sync
	SyncCarrier30of32 = 0x07 // Carrier-sense + 30/32 sync
)

// Bit masks for read-modify-write of shared registers
const (
	MaskModulation   = 0x70 // MDMCFG2[6:4]
	MaskManchester   = 0x08 // MDMCFG2[3]
	MaskSyncMode     = 0x07 // MDMCFG2[2:0]
	MaskFEC          = 0x80 // MDMCFG1[7]
	MaskPreamble     = 0x70 // MDMCFG1[6:4]
	MaskWhitening    = 0x40 // PKTCTRL0[6]
	MaskDatarateExp  = 0x0F // MDMCFG4[3:0]
	MaskChannelBW    = 0xF0 // MDMCFG4[7:4]
	MaskPAPower      = 0x07 // FREND0[2:0]
	MaskCRCEnable    = 0x04 // PKTCTRL0[2]
	MaskLengthConfig = 0x03 // PKTCTRL0[1:0]
)

// Part identification for the CC1101
const (
	PartNumCC1101 = 0x00
	VersionCC1101 = 0x14
)
