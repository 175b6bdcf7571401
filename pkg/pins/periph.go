package pins

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphLine struct {
	pin gpio.PinIO
	dir Direction
}

// Periph drives lines through the periph.io host registry
type Periph struct {
	mu    sync.Mutex
	lines map[int]periphLine
}

// NewPeriph initializes the periph host drivers
func NewPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init failed: %w", err)
	}
	return &Periph{lines: make(map[int]periphLine)}, nil
}

func (p *Periph) OpenPin(pin int, dir Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := fmt.Sprintf("GPIO%d", pin)
	io := gpioreg.ByName(name)
	if io == nil {
		return fmt.Errorf("%s: %w", name, ErrPinNotFound)
	}

	var err error
	if dir == Output {
		err = io.Out(gpio.High)
	} else {
		err = io.In(gpio.PullNoChange, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s as %s: %w", name, dir, err)
	}

	p.lines[pin] = periphLine{pin: io, dir: dir}
	return nil
}

func (p *Periph) line(pin int) (periphLine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lines[pin]
	if !ok {
		return periphLine{}, fmt.Errorf("GPIO%d: %w", pin, ErrPinNotOpen)
	}
	return l, nil
}

func (p *Periph) ReadLine(pin int) (bool, error) {
	l, err := p.line(pin)
	if err != nil {
		return false, err
	}
	return l.pin.Read() == gpio.High, nil
}

func (p *Periph) WriteLine(pin int, high bool) error {
	l, err := p.line(pin)
	if err != nil {
		return err
	}
	if l.dir != Output {
		return fmt.Errorf("GPIO%d: %w", pin, ErrWrongDirection)
	}
	return l.pin.Out(gpio.Level(high))
}

func (p *Periph) IsPinOpen(pin int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lines[pin]
	return ok
}

// Close returns every opened line to a floating input
func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for n, l := range p.lines {
		if err := l.pin.In(gpio.Float, gpio.NoEdge); err != nil && first == nil {
			first = fmt.Errorf("failed to release GPIO%d: %w", n, err)
		}
		delete(p.lines, n)
	}
	return first
}
