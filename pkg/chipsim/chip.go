// Package chipsim is an in-memory CC1101. It models the register file, the
// MARCSTATE machine as driven by strobes, both FIFOs and the GDO2 line, and
// connects several chips through a shared Air. A Chip implements both
// transport.Transport and pins.Controller so the link engine runs on it
// unchanged.
package chipsim

import (
	"fmt"
	"sync"

	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
)

// Register values after SRES, addresses 0x00-0x2E
var resetValues = [registers.NumConfigRegisters]byte{
	0x29, 0x2E, 0x3F, 0x07, 0xD3, 0x91, 0xFF, 0x04,
	0x45, 0x00, 0x00, 0x0F, 0x00, 0x1E, 0xC4, 0xEC,
	0x8C, 0x22, 0x02, 0x22, 0xF8, 0x47, 0x07, 0x30,
	0x04, 0x36, 0x6C, 0x03, 0x40, 0x91, 0x87, 0x6B,
	0xF8, 0x56, 0x10, 0xA9, 0x0A, 0x20, 0x0D, 0x41,
	0x00, 0x59, 0x7F, 0x3F, 0x88, 0x31, 0x0B,
}

// Default link quality appended to received frames
const (
	DefaultRSSI = 0x40 // -42 dBm with a 74 dB offset
	DefaultLQI  = 0x20
)

// Chip is one simulated transceiver
type Chip struct {
	mu sync.Mutex

	name   string
	gdo2   int
	air    *Air
	regs   [registers.NumConfigRegisters]byte
	pa     [8]byte
	state  registers.RadioState
	txFIFO []byte
	rxFIFO []byte
	ovf    bool

	// GDO2 model for IOCFG2 = 0x06. syncHigh is the line level, syncHold
	// counts reads left before the end of packet drops it.
	syncHigh bool
	syncHold int

	rssi  byte
	lqi   byte
	crcOK bool

	stuck   bool
	strobes []uint8
	txLog   [][]byte

	pinDir   map[int]pins.Direction
	pinLevel map[int]bool
	closed   bool
}

// New returns a chip in IDLE with reset register values. gdo2 is the pin
// number ReadLine reports the GDO2 output on.
func New(name string, gdo2 int) *Chip {
	c := &Chip{
		name:     name,
		gdo2:     gdo2,
		rssi:     DefaultRSSI,
		lqi:      DefaultLQI,
		crcOK:    true,
		pinDir:   make(map[int]pins.Direction),
		pinLevel: make(map[int]bool),
	}
	c.reset()
	return c
}

func (c *Chip) String() string {
	return c.name
}

func (c *Chip) reset() {
	c.regs = resetValues
	c.pa = [8]byte{0xC6}
	c.state = registers.StateIDLE
	c.txFIFO = nil
	c.rxFIFO = nil
	c.ovf = false
	c.syncHigh = false
	c.syncHold = 0
}

// SetLinkQuality sets the RSSI and LQI bytes appended to received frames
func (c *Chip) SetLinkQuality(rssi, lqi byte, crcOK bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rssi = rssi
	c.lqi = lqi & registers.StatusLQIMask
	c.crcOK = crcOK
}

// Stick freezes MARCSTATE so strobes no longer change it
func (c *Chip) Stick(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuck = stuck
}

// ForceOverflow sets the RX FIFO overflow flag
func (c *Chip) ForceOverflow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ovf = true
	c.state = registers.StateRXFIFO_OVF
}

// Strobes returns every strobe received so far
func (c *Chip) Strobes() []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint8(nil), c.strobes...)
}

// TxLog returns every frame put on the air, without status bytes
func (c *Chip) TxLog() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.txLog))
	for i, f := range c.txLog {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Register returns a configuration register without bus side effects
func (c *Chip) Register(addr byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(addr) < len(c.regs) {
		return c.regs[addr]
	}
	return 0
}

// PATable returns the PA table contents
func (c *Chip) PATable() [8]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pa
}

// State returns MARCSTATE without bus side effects
func (c *Chip) State() registers.RadioState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState forces MARCSTATE
func (c *Chip) SetState(s registers.RadioState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Inject places a frame in the RX FIFO as if it had been received,
// regardless of state or filtering. The status bytes are appended when
// PKTCTRL1.APPEND_STATUS is set.
func (c *Chip) Inject(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receive(frame)
}

// Feed appends raw bytes to the RX FIFO as if a frame were still arriving.
// No status bytes are added and the sync line is left alone.
func (c *Chip) Feed(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rxFIFO = append(c.rxFIFO, b...)
}

// receive appends a frame to the RX FIFO. Caller holds mu.
func (c *Chip) receive(frame []byte) {
	data := append([]byte(nil), frame...)
	if c.regs[registers.RegPKTCTRL1]&0x04 != 0 {
		status := c.lqi
		if c.crcOK {
			status |= registers.StatusCRCOK
		}
		data = append(data, c.rssi, status)
	}
	if len(c.rxFIFO)+len(data) > registers.FIFOSize {
		c.ovf = true
		c.state = registers.StateRXFIFO_OVF
		return
	}
	c.rxFIFO = append(c.rxFIFO, data...)
	c.syncHigh = true
	c.syncHold = 1

	// MCSM1.RXOFF_MODE: 0 returns to IDLE, 3 stays in RX
	if (c.regs[registers.RegMCSM1]>>2)&0x03 == 0 {
		c.state = registers.StateIDLE
	}
}

// accepts reports whether a frame on the air reaches this chip. Caller
// holds mu.
func (c *Chip) accepts(channel byte, freq [3]byte, frame []byte) bool {
	if c.closed || c.state != registers.StateRX {
		return false
	}
	if c.regs[registers.RegCHANNR] != channel {
		return false
	}
	if [3]byte{c.regs[registers.RegFREQ2], c.regs[registers.RegFREQ1], c.regs[registers.RegFREQ0]} != freq {
		return false
	}
	if len(frame) < 2 {
		return false
	}
	// PKTCTRL1.ADR_CHK
	switch c.regs[registers.RegPKTCTRL1] & 0x03 {
	case 1:
		return frame[1] == c.regs[registers.RegADDR]
	case 2:
		return frame[1] == c.regs[registers.RegADDR] || frame[1] == 0x00
	case 3:
		return frame[1] == c.regs[registers.RegADDR] || frame[1] == 0x00 || frame[1] == 0xFF
	}
	return true
}

func (c *Chip) Strobe(cmd byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.strobes = append(c.strobes, cmd)

	var frame []byte
	var channel byte
	var freq [3]byte

	switch cmd {
	case registers.StrobeSRES:
		c.reset()
	case registers.StrobeSFRX:
		c.rxFIFO = nil
		c.ovf = false
		c.syncHigh = false
		if c.state == registers.StateRXFIFO_OVF && !c.stuck {
			c.state = registers.StateIDLE
		}
	case registers.StrobeSFTX:
		c.txFIFO = nil
	case registers.StrobeSRX:
		c.setState(registers.StateRX)
	case registers.StrobeSIDLE:
		c.setState(registers.StateIDLE)
	case registers.StrobeSPWD:
		if c.state == registers.StateIDLE {
			c.setState(registers.StateSLEEP)
		}
	case registers.StrobeSWOR:
		c.setState(registers.StateSLEEP)
	case registers.StrobeSTX:
		if c.stuck {
			break
		}
		frame = c.takeTxFrame()
		channel = c.regs[registers.RegCHANNR]
		freq = [3]byte{c.regs[registers.RegFREQ2], c.regs[registers.RegFREQ1], c.regs[registers.RegFREQ0]}
		// MCSM1.TXOFF_MODE: 3 goes to RX, anything else is treated as IDLE
		if c.regs[registers.RegMCSM1]&0x03 == 3 {
			c.state = registers.StateRX
		} else {
			c.state = registers.StateIDLE
		}
	}
	air := c.air
	c.mu.Unlock()

	if frame != nil && air != nil {
		air.transmit(c, channel, freq, frame)
	}
	return nil
}

func (c *Chip) setState(s registers.RadioState) {
	if !c.stuck {
		c.state = s
	}
}

// takeTxFrame removes one length-prefixed frame from the TX FIFO. Caller
// holds mu.
func (c *Chip) takeTxFrame() []byte {
	if len(c.txFIFO) == 0 {
		return nil
	}
	n := int(c.txFIFO[0]) + 1
	if n > len(c.txFIFO) {
		n = len(c.txFIFO)
	}
	frame := append([]byte(nil), c.txFIFO[:n]...)
	c.txFIFO = c.txFIFO[n:]
	c.txLog = append(c.txLog, frame)
	return frame
}

func (c *Chip) ReadRegister(addr byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, transport.ErrClosed
	}

	switch addr {
	case registers.RegPARTNUM:
		return registers.PartNumCC1101, nil
	case registers.RegVERSION:
		return registers.VersionCC1101, nil
	case registers.RegMARCSTATE:
		return byte(c.state), nil
	case registers.RegRSSI:
		return c.rssi, nil
	case registers.RegLQI:
		return c.lqi, nil
	case registers.RegPKTSTATUS:
		var v byte
		if c.gdo2Level() {
			v |= registers.PKTStatusGDO2
		}
		return v, nil
	case registers.RegRXBYTES:
		v := byte(len(c.rxFIFO)) & registers.RXBytesMask
		if c.ovf {
			v |= registers.RXOverflow
		}
		return v, nil
	case registers.RegTXBYTES:
		return byte(len(c.txFIFO)), nil
	case registers.RegFIFO:
		return c.popRX(1)[0], nil
	}
	if int(addr) < len(c.regs) {
		return c.regs[addr], nil
	}
	if addr >= registers.RegPARTNUM {
		return 0, nil
	}
	return 0, fmt.Errorf("%s: read of unmapped register 0x%02X", c.name, addr)
}

func (c *Chip) WriteRegister(addr, value byte) error {
	return c.WriteBurst(addr, []byte{value})
}

func (c *Chip) ReadBurst(addr byte, count int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrClosed
	}

	switch {
	case addr == registers.RegFIFO:
		return c.popRX(count), nil
	case addr == registers.RegPATABLE:
		out := make([]byte, count)
		for i := range out {
			out[i] = c.pa[i%len(c.pa)]
		}
		return out, nil
	case int(addr)+count <= len(c.regs):
		return append([]byte(nil), c.regs[addr:int(addr)+count]...), nil
	}
	return nil, fmt.Errorf("%s: burst read 0x%02X+%d out of range", c.name, addr, count)
}

// popRX reads count bytes from the RX FIFO; an underflow reads zeros.
// Caller holds mu.
func (c *Chip) popRX(count int) []byte {
	out := make([]byte, count)
	n := copy(out, c.rxFIFO)
	c.rxFIFO = c.rxFIFO[n:]
	if len(c.rxFIFO) == 0 {
		c.syncHigh = false
	}
	return out
}

func (c *Chip) WriteBurst(addr byte, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}

	switch {
	case addr == registers.RegFIFO:
		if len(c.txFIFO)+len(data) > registers.FIFOSize {
			return fmt.Errorf("%s: TX FIFO overflow", c.name)
		}
		c.txFIFO = append(c.txFIFO, data...)
		return nil
	case addr == registers.RegPATABLE:
		for i, b := range data {
			c.pa[i%len(c.pa)] = b
		}
		return nil
	case int(addr)+len(data) <= len(c.regs):
		copy(c.regs[addr:], data)
		return nil
	}
	return fmt.Errorf("%s: burst write 0x%02X+%d out of range", c.name, addr, len(data))
}

func (c *Chip) OpenPin(pin int, dir pins.Direction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinDir[pin] = dir
	if dir == pins.Output {
		c.pinLevel[pin] = true
	}
	return nil
}

func (c *Chip) IsPinOpen(pin int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pinDir[pin]
	return ok
}

func (c *Chip) ReadLine(pin int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pinDir[pin]; !ok {
		return false, fmt.Errorf("%s pin %d: %w", c.name, pin, pins.ErrPinNotOpen)
	}
	if pin != c.gdo2 {
		return c.pinLevel[pin], nil
	}
	return c.gdo2Level(), nil
}

// gdo2Level evaluates the GDO2 output for the IOCFG2 setting. Caller
// holds mu.
func (c *Chip) gdo2Level() bool {
	switch c.regs[registers.RegIOCFG2] & 0x3F {
	case registers.IOCFGSyncWord:
		if !c.syncHigh {
			return false
		}
		if c.syncHold > 0 {
			c.syncHold--
			return true
		}
		c.syncHigh = false
		return false
	case registers.IOCFGPacketCRCOK:
		return c.frameReady()
	case 0x29:
		// CHIP_RDYn is active low
		return c.state == registers.StateSLEEP
	}
	return len(c.rxFIFO) > 0
}

// frameReady reports whether the RX FIFO starts with a whole frame, status
// bytes included, that passed CRC. Caller holds mu.
func (c *Chip) frameReady() bool {
	if len(c.rxFIFO) == 0 {
		return false
	}
	n := int(c.rxFIFO[0]) + 1
	appended := c.regs[registers.RegPKTCTRL1]&0x04 != 0
	if appended {
		n += 2
	}
	if len(c.rxFIFO) < n {
		return false
	}
	return !appended || c.rxFIFO[n-1]&registers.StatusCRCOK != 0
}

func (c *Chip) WriteLine(pin int, high bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, ok := c.pinDir[pin]
	if !ok {
		return fmt.Errorf("%s pin %d: %w", c.name, pin, pins.ErrPinNotOpen)
	}
	if dir != pins.Output {
		return fmt.Errorf("%s pin %d: %w", c.name, pin, pins.ErrWrongDirection)
	}
	c.pinLevel[pin] = high
	// CS low wakes the chip from SLEEP
	if !high && c.state == registers.StateSLEEP && !c.stuck {
		c.state = registers.StateIDLE
	}
	return nil
}

// Close detaches the chip from its Air. Later bus access fails with
// transport.ErrClosed. Safe to call more than once.
func (c *Chip) Close() error {
	c.mu.Lock()
	air := c.air
	c.closed = true
	c.air = nil
	c.mu.Unlock()

	if air != nil {
		air.leave(c)
	}
	return nil
}
