// cc1101-load-config: Load CC1101 register configuration from JSON file
//
// This tool reads a configuration file saved by cc1101-dump-config and
// writes it to a CC1101.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/device"
	"github.com/herlein/cc1101/pkg/transport"
)

func main() {
	// Parse command line flags
	settingsPath := flag.String("c", "", "Settings file path (default: built-in Bus0 settings)")
	backendName := flag.String("b", "spi", device.BackendFlagUsage())
	deviceSel := flag.String("d", "", transport.SelectorFlagUsage())
	verbose := flag.Bool("v", false, "Verbose output")
	verify := flag.Bool("verify", false, "Verify configuration after writing")
	flag.Parse()

	// Get config file path from arguments
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <config-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s etc/cc1101/SPI0.0.json\n", os.Args[0])
		os.Exit(1)
	}

	configPath := args[0]

	if *verbose {
		fmt.Printf("Loading configuration from: %s\n", configPath)
	}

	configuration, err := config.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Configuration loaded:\n")
		fmt.Printf("  Original Name:      %s\n", configuration.Name)
		fmt.Printf("  Original Chip:      PARTNUM=0x%02X VERSION=0x%02X\n", configuration.PartNum, configuration.Version)
		fmt.Printf("  Original Timestamp: %s\n", configuration.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Frequency:          %.6f MHz\n", configuration.GetFrequencyMHz())
		fmt.Printf("  Sync Word:          0x%04X\n", configuration.GetSyncWord())
		fmt.Printf("  Modulation:         %s\n", configuration.GetModulationString())
	}

	settings := config.DefaultSettings()
	if *settingsPath != "" {
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

	if *verbose {
		fmt.Printf("\nConnected to: %s\n", h.Name)
		fmt.Println("Applying configuration...")
	}

	ctx := context.Background()
	if err := config.ApplyToDevice(ctx, h.Bus, configuration); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration applied successfully")

	if !*verify {
		return
	}
	if *verbose {
		fmt.Println("\nVerifying configuration...")
	}

	readBack, err := config.DumpFromDevice(ctx, h.Bus, configuration.Name, configuration.CrystalHz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to read back configuration for verification: %v\n", err)
		return
	}
	if errs := verifyConfig(configuration, readBack); len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "Verification failed with %d error(s):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		h.Close()
		os.Exit(1)
	}
	fmt.Println("Verification: OK")
}

func verifyConfig(expected, actual *config.DeviceConfig) []string {
	var errs []string

	// Key registers only; FSCAL and TEST values move with calibration
	e := &expected.Registers
	a := &actual.Registers

	if e.SYNC1 != a.SYNC1 || e.SYNC0 != a.SYNC0 {
		errs = append(errs, fmt.Sprintf("SYNC mismatch: expected 0x%02X%02X, got 0x%02X%02X",
			e.SYNC1, e.SYNC0, a.SYNC1, a.SYNC0))
	}

	if e.FREQ2 != a.FREQ2 || e.FREQ1 != a.FREQ1 || e.FREQ0 != a.FREQ0 {
		errs = append(errs, fmt.Sprintf("FREQ mismatch: expected 0x%02X%02X%02X, got 0x%02X%02X%02X",
			e.FREQ2, e.FREQ1, e.FREQ0, a.FREQ2, a.FREQ1, a.FREQ0))
	}

	if e.MDMCFG4 != a.MDMCFG4 || e.MDMCFG3 != a.MDMCFG3 || e.MDMCFG2 != a.MDMCFG2 {
		errs = append(errs, fmt.Sprintf("MDMCFG mismatch: expected 0x%02X%02X%02X, got 0x%02X%02X%02X",
			e.MDMCFG4, e.MDMCFG3, e.MDMCFG2, a.MDMCFG4, a.MDMCFG3, a.MDMCFG2))
	}

	if e.DEVIATN != a.DEVIATN {
		errs = append(errs, fmt.Sprintf("DEVIATN mismatch: expected 0x%02X, got 0x%02X",
			e.DEVIATN, a.DEVIATN))
	}

	if e.PKTLEN != a.PKTLEN {
		errs = append(errs, fmt.Sprintf("PKTLEN mismatch: expected %d, got %d",
			e.PKTLEN, a.PKTLEN))
	}

	if e.PKTCTRL1 != a.PKTCTRL1 || e.PKTCTRL0 != a.PKTCTRL0 {
		errs = append(errs, fmt.Sprintf("PKTCTRL mismatch: expected 0x%02X%02X, got 0x%02X%02X",
			e.PKTCTRL1, e.PKTCTRL0, a.PKTCTRL1, a.PKTCTRL0))
	}

	if e.ADDR != a.ADDR || e.CHANNR != a.CHANNR {
		errs = append(errs, fmt.Sprintf("ADDR/CHANNR mismatch: expected 0x%02X/%d, got 0x%02X/%d",
			e.ADDR, e.CHANNR, a.ADDR, a.CHANNR))
	}

	return errs
}
