package link

import "fmt"

// Packet is a received frame with its link quality. Packets are only
// produced by the Engine.
type Packet struct {
	sender   uint8
	receiver uint8
	rssi     int
	lqi      uint8
	crcOK    bool
	payload  []byte
	raw      []byte
}

func (p *Packet) Sender() uint8   { return p.sender }
func (p *Packet) Receiver() uint8 { return p.receiver }

// RSSI is the received signal strength in dBm
func (p *Packet) RSSI() int { return p.rssi }

// LQI is the 7-bit link quality indicator
func (p *Packet) LQI() uint8 { return p.lqi }

// CRCOK reports whether the chip validated the frame CRC
func (p *Packet) CRCOK() bool { return p.crcOK }

// Payload returns a copy of the application bytes
func (p *Packet) Payload() []byte { return append([]byte(nil), p.payload...) }

// Raw returns a copy of the frame as read from the FIFO
func (p *Packet) Raw() []byte { return append([]byte(nil), p.raw...) }

func (p *Packet) String() string {
	return fmt.Sprintf("0x%02X->0x%02X %d bytes rssi=%ddBm lqi=%d crc=%t",
		p.sender, p.receiver, len(p.payload), p.rssi, p.lqi, p.crcOK)
}

// parsePacket decodes a FIFO read: frame followed by the RSSI and LQI
// status bytes
func parsePacket(raw []byte, rssiOffset int) (*Packet, error) {
	f, err := DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	n := int(raw[0])
	if n+statusLen >= len(raw) {
		return nil, fmt.Errorf("no status bytes after length %d in %d bytes: %w", n, len(raw), ErrMalformedFrame)
	}
	status := raw[n+2]
	return &Packet{
		sender:   f.Src,
		receiver: f.Dest,
		rssi:     RSSIToDBm(raw[n+1], rssiOffset),
		lqi:      LQI(status),
		crcOK:    CRCOK(status),
		payload:  f.Payload,
		raw:      append([]byte(nil), raw...),
	}, nil
}
