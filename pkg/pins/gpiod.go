package pins

import (
	"fmt"
	"sync"

	"github.com/warthog618/gpiod"
)

// DefaultChip is the GPIO character device on a Raspberry Pi
const DefaultChip = "gpiochip0"

type gpiodLine struct {
	line *gpiod.Line
	dir  Direction
}

// Gpiod drives lines through the Linux GPIO character device
type Gpiod struct {
	chip  string
	mu    sync.Mutex
	lines map[int]gpiodLine
}

// NewGpiod uses the named chip, or DefaultChip when empty
func NewGpiod(chip string) *Gpiod {
	if chip == "" {
		chip = DefaultChip
	}
	return &Gpiod{chip: chip, lines: make(map[int]gpiodLine)}
}

func (g *Gpiod) OpenPin(pin int, dir Direction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.lines[pin]; ok {
		old.line.Close()
		delete(g.lines, pin)
	}

	var l *gpiod.Line
	var err error
	if dir == Output {
		l, err = gpiod.RequestLine(g.chip, pin, gpiod.AsOutput(1))
	} else {
		l, err = gpiod.RequestLine(g.chip, pin, gpiod.AsInput)
	}
	if err != nil {
		return fmt.Errorf("failed to request %s line %d: %w", g.chip, pin, err)
	}

	g.lines[pin] = gpiodLine{line: l, dir: dir}
	return nil
}

func (g *Gpiod) get(pin int) (gpiodLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.lines[pin]
	if !ok {
		return gpiodLine{}, fmt.Errorf("%s line %d: %w", g.chip, pin, ErrPinNotOpen)
	}
	return l, nil
}

func (g *Gpiod) ReadLine(pin int) (bool, error) {
	l, err := g.get(pin)
	if err != nil {
		return false, err
	}
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read %s line %d: %w", g.chip, pin, err)
	}
	return v != 0, nil
}

func (g *Gpiod) WriteLine(pin int, high bool) error {
	l, err := g.get(pin)
	if err != nil {
		return err
	}
	if l.dir != Output {
		return fmt.Errorf("%s line %d: %w", g.chip, pin, ErrWrongDirection)
	}
	v := 0
	if high {
		v = 1
	}
	return l.line.SetValue(v)
}

func (g *Gpiod) IsPinOpen(pin int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.lines[pin]
	return ok
}

func (g *Gpiod) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var first error
	for n, l := range g.lines {
		if err := l.line.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to release %s line %d: %w", g.chip, n, err)
		}
		delete(g.lines, n)
	}
	return first
}
