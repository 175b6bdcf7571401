// lscc: List the places a CC1101 can be reached from this host
//
// This tool enumerates host SPI ports and CH341A USB-to-SPI bridges. With
// -v each one is probed for a CC1101 by reading PARTNUM and VERSION.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (probe each port for a chip)")
	flag.Parse()

	found := listSPI(*verbose) + listCH341(*verbose)
	if found == 0 {
		fmt.Println("No SPI ports or CH341A bridges found")
	}
}

func listSPI(verbose bool) int {
	if _, err := host.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialise host drivers: %v\n", err)
		return 0
	}

	refs := spireg.All()
	if len(refs) == 0 {
		return 0
	}

	fmt.Printf("Found %d SPI port(s):\n", len(refs))
	for _, ref := range refs {
		fmt.Printf("  %s", ref.Name)
		if len(ref.Aliases) > 0 {
			fmt.Printf(" %v", ref.Aliases)
		}
		fmt.Println()
		if !verbose {
			continue
		}

		port, err := transport.OpenSPI(ref.Name, 0)
		if err != nil {
			fmt.Printf("    (error: %v)\n", err)
			continue
		}
		printChip(port.Bus)
		port.Close()
	}
	fmt.Println()
	return len(refs)
}

func listCH341(verbose bool) int {
	usb := gousb.NewContext()
	defer usb.Close()

	bridges, err := transport.FindAllCH341(usb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate CH341A bridges: %v\n", err)
		return 0
	}
	if len(bridges) == 0 {
		return 0
	}

	fmt.Printf("Found %d CH341A bridge(s):\n", len(bridges))
	for i, bridge := range bridges {
		defer bridge.Close()

		if !verbose {
			fmt.Printf("  [%d] %s serial=%s\n", i, bridge, bridge.Serial)
			continue
		}

		fmt.Printf("Bridge #%d:\n", i)
		fmt.Printf("  Serial:       %s\n", bridge.Serial)
		fmt.Printf("  Bus:Address:  %d:%d\n", bridge.BusNum, bridge.Address)
		fmt.Printf("  Manufacturer: %s\n", bridge.Manufacturer)
		fmt.Printf("  Product:      %s\n", bridge.Product)
		printChip(bridge.Bus)
	}
	fmt.Println()
	return len(bridges)
}

func printChip(bus *transport.Bus) {
	partNum, err := bus.ReadRegister(registers.RegPARTNUM)
	if err != nil {
		fmt.Printf("    Chip:       (error: %v)\n", err)
		return
	}
	version, err := bus.ReadRegister(registers.RegVERSION)
	if err != nil {
		fmt.Printf("    Chip:       (error: %v)\n", err)
		return
	}
	// A floating MISO reads all zeros or all ones
	if version == 0x00 || version == 0xFF {
		fmt.Println("    Chip:       none")
		return
	}
	fmt.Printf("    Chip:       CC1101 PARTNUM=0x%02X VERSION=0x%02X\n", partNum, version)
}
