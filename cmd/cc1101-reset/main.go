// cc1101-reset resets a CC1101 to its power-on state and reports the chip
// identity, to recover a radio left in SLEEP or a wedged state
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/device"
	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

func main() {
	settingsPath := flag.String("c", "", "Settings file path (default: built-in Bus0 settings)")
	backendName := flag.String("b", "spi", device.BackendFlagUsage())
	deviceSel := flag.String("d", "", transport.SelectorFlagUsage())
	attempts := flag.Int("attempts", 3, "Number of reset attempts")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	settings := config.DefaultSettings()
	if *settingsPath != "" {
		var err error
		settings, err = config.LoadSettings(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load settings: %v\n", err)
			os.Exit(1)
		}
	}

	backend, err := device.ParseBackend(*backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	h, err := device.Open(backend, settings.Connection, *deviceSel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	if h.CSPin != radio.NoPin {
		if err := h.GPIO.OpenPin(h.CSPin, pins.Output); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	timing := settings.Timing.Link().Radio
	state := radio.NewStateController(h.Bus, timing, log)
	power := radio.NewPowerController(h.Bus, h.GPIO, h.CSPin, state, timing, log)

	ctx := context.Background()
	for attempt := 0; attempt < *attempts; attempt++ {
		if err := power.Reset(ctx); err != nil {
			fmt.Printf("Attempt %d: Reset failed: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}

		partNum, err := h.Bus.ReadRegister(registers.RegPARTNUM)
		if err != nil {
			fmt.Printf("Attempt %d: Failed to read PARTNUM: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}
		version, err := h.Bus.ReadRegister(registers.RegVERSION)
		if err != nil {
			fmt.Printf("Attempt %d: Failed to read VERSION: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}
		if version == 0x00 || version == 0xFF {
			fmt.Printf("Attempt %d: No chip answering on %s (VERSION=0x%02X)\n", attempt+1, h.Name, version)
			time.Sleep(time.Second)
			continue
		}

		s, _ := state.State()
		fmt.Printf("%s: Reset OK\n", h.Name)
		fmt.Printf("  PARTNUM:   0x%02X\n", partNum)
		fmt.Printf("  VERSION:   0x%02X\n", version)
		fmt.Printf("  MARCSTATE: %s\n", s)
		os.Exit(0)
	}

	fmt.Printf("Failed to reset %s after %d attempts\n", h.Name, *attempts)
	h.Close()
	os.Exit(1)
}
