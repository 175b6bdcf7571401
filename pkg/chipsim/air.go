package chipsim

import (
	"sync"
	"time"
)

// DefaultAirtime is the delivery delay Pair configures
const DefaultAirtime = 2 * time.Millisecond

// Air connects chips. A frame sent by one chip reaches every other chip
// that is in RX on the same channel and band when its airtime has passed.
type Air struct {
	// Airtime delays delivery. Zero delivers before STX returns.
	Airtime time.Duration

	mu    sync.Mutex
	chips []*Chip
}

// NewAir returns an empty medium
func NewAir() *Air {
	return &Air{}
}

// Join attaches c to the medium
func (a *Air) Join(c *Chip) {
	a.mu.Lock()
	a.chips = append(a.chips, c)
	a.mu.Unlock()

	c.mu.Lock()
	c.air = a
	c.mu.Unlock()
}

func (a *Air) leave(c *Chip) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, other := range a.chips {
		if other == c {
			a.chips = append(a.chips[:i], a.chips[i+1:]...)
			return
		}
	}
}

// transmit delivers frame to every listening peer once Airtime has passed.
// The sender's lock must not be held.
func (a *Air) transmit(from *Chip, channel byte, freq [3]byte, frame []byte) {
	if a.Airtime > 0 {
		time.AfterFunc(a.Airtime, func() { a.deliver(from, channel, freq, frame) })
		return
	}
	a.deliver(from, channel, freq, frame)
}

func (a *Air) deliver(from *Chip, channel byte, freq [3]byte, frame []byte) {
	a.mu.Lock()
	peers := append([]*Chip(nil), a.chips...)
	a.mu.Unlock()

	for _, c := range peers {
		if c == from {
			continue
		}
		c.mu.Lock()
		if c.accepts(channel, freq, frame) {
			c.receive(frame)
		}
		c.mu.Unlock()
	}
}

// Pair returns two chips joined on a fresh Air
func Pair(gdo2 int) (*Chip, *Chip, *Air) {
	air := NewAir()
	air.Airtime = DefaultAirtime
	a := New("chip-a", gdo2)
	b := New("chip-b", gdo2)
	air.Join(a)
	air.Join(b)
	return a, b, air
}
