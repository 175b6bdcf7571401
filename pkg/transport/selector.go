package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// Selector specifies how to identify a CH341 bridge
// Supported formats:
//   - ""           : Use first available bridge
//   - "serial"     : Match by USB serial string
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth bridge, 0-indexed (e.g., "#0", "#1")
type Selector string

type selectorKind int

const (
	selectFirst selectorKind = iota
	selectIndex
	selectBusAddr
	selectSerial
)

type parsedSelector struct {
	kind   selectorKind
	index  int
	bus    int
	addr   int
	serial string
}

func (s Selector) parse() (parsedSelector, error) {
	sel := string(s)

	if sel == "" {
		return parsedSelector{kind: selectFirst}, nil
	}

	if strings.HasPrefix(sel, "#") {
		index, err := strconv.Atoi(sel[1:])
		if err != nil || index < 0 {
			return parsedSelector{}, fmt.Errorf("invalid device index: %s", sel)
		}
		return parsedSelector{kind: selectIndex, index: index}, nil
	}

	if strings.Contains(sel, ":") {
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return parsedSelector{kind: selectBusAddr, bus: bus, addr: addr}, nil
	}

	return parsedSelector{kind: selectSerial, serial: sel}, nil
}

// pick returns the index of the matching candidate, or an error
func (p parsedSelector) pick(bridges []*CH341) (int, error) {
	if len(bridges) == 0 {
		return -1, fmt.Errorf("no CH341 bridges found: %w", ErrDeviceNotFound)
	}

	switch p.kind {
	case selectFirst:
		return 0, nil
	case selectIndex:
		if p.index >= len(bridges) {
			return -1, fmt.Errorf("device index %d out of range (found %d devices): %w", p.index, len(bridges), ErrDeviceNotFound)
		}
		return p.index, nil
	case selectBusAddr:
		for i, b := range bridges {
			if b.BusNum == p.bus && b.Address == p.addr {
				return i, nil
			}
		}
		return -1, fmt.Errorf("no CH341 found at bus %d address %d: %w", p.bus, p.addr, ErrDeviceNotFound)
	default:
		match := -1
		for i, b := range bridges {
			if b.Serial != p.serial {
				continue
			}
			if match >= 0 {
				return -1, fmt.Errorf("multiple devices found with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", p.serial)
			}
			match = i
		}
		if match < 0 {
			return -1, fmt.Errorf("no CH341 found with serial %s: %w", p.serial, ErrDeviceNotFound)
		}
		return match, nil
	}
}

// SelectCH341 opens the CH341 bridge matching the selector and closes the rest
func SelectCH341(usb *gousb.Context, selector Selector) (*CH341, error) {
	parsed, err := selector.parse()
	if err != nil {
		return nil, err
	}

	bridges, err := FindAllCH341(usb)
	if err != nil {
		return nil, err
	}

	idx, err := parsed.pick(bridges)
	for i, b := range bridges {
		if i != idx {
			b.Close()
		}
	}
	if err != nil {
		return nil, err
	}
	return bridges[idx], nil
}

// SelectorFlagUsage returns usage text for a -d flag
func SelectorFlagUsage() string {
	return `CH341 selector. Formats:
    ""        - Use first available bridge
    "serial"  - Match by USB serial string
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth bridge, 0-indexed (e.g., "#0", "#1")`
}
