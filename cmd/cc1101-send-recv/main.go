// cc1101-send-recv: Send and receive addressed packets with a CC1101
//
// In send mode the payload goes to one node with acknowledgement and
// retries, or to every node when the destination is the broadcast address.
// In receive mode packets are printed as they arrive and acknowledged
// automatically.
//
// Examples:
//
//	# Receive mode on the SPI bus described by a settings file
//	./cc1101-send-recv -m recv -c etc/cc1101/node.settings.json
//
//	# Send "Hello" to node 0x21 with 5 retries
//	./cc1101-send-recv -m send -to 0x21 -data "Hello" -retries 5
//
//	# Broadcast hex data through a CH341A bridge
//	./cc1101-send-recv -m send -b ch341 -to 0 -hex "DEADBEEF"
//
//	# Try it without hardware: two simulated chips on a shared medium
//	./cc1101-send-recv -m send -sim -data "ping" -repeat 3
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/device"
	"github.com/herlein/cc1101/pkg/link"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

// simPeerAddress is the address of the simulated node in -sim mode
const simPeerAddress = 0x21

func main() {
	mode := flag.String("m", "", "Mode: 'send' or 'recv' (required)")
	settingsPath := flag.String("c", "", "Settings file path (default: built-in Bus0 settings)")
	backendName := flag.String("b", "spi", device.BackendFlagUsage())
	deviceSel := flag.String("d", "", transport.SelectorFlagUsage())
	sim := flag.Bool("sim", false, "Run against a simulated chip with a simulated peer")
	verbose := flag.Bool("v", false, "Verbose output")

	// Send mode options
	to := flag.String("to", "", "Destination address, e.g. 0x21 (0 broadcasts)")
	dataStr := flag.String("data", "", "Data to send (ASCII string)")
	hexStr := flag.String("hex", "", "Data to send (hex encoded)")
	retries := flag.Int("retries", -1, "Retries per packet (default: from settings)")
	repeat := flag.Uint("repeat", 0, "Number of times to repeat transmission (0 = once)")
	interval := flag.Duration("interval", 500*time.Millisecond, "Pause between repeated transmissions")

	// Receive mode options
	timeout := flag.Duration("timeout", 1*time.Second, "Receive timeout per packet")
	count := flag.Int("count", 0, "Number of packets to receive (0 = infinite)")
	rawOutput := flag.Bool("raw", false, "Output raw hex only (for piping)")

	flag.Parse()

	*mode = strings.ToLower(*mode)
	if *mode != "send" && *mode != "recv" {
		fmt.Fprintln(os.Stderr, "Error: Mode (-m) is required. Use 'send' or 'recv'")
		flag.PrintDefaults()
		os.Exit(1)
	}

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
	if *retries < 0 {
		*retries = settings.Session.Retries
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var engine *link.Engine
	var err error
	if *sim {
		engine, err = startSimulation(ctx, settings, log, *mode == "send")
		if *to == "" {
			*to = fmt.Sprintf("0x%02X", simPeerAddress)
		}
	} else {
		var backend device.Backend
		backend, err = device.ParseBackend(*backendName)
		if err == nil {
			var h *device.Handle
			engine, h, err = device.OpenEngine(ctx, backend, settings, *deviceSel, log)
			if err == nil && *verbose {
				fmt.Printf("Connected to: %s\n", h.Name)
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if *verbose {
		part, version := engine.ChipInfo()
		fmt.Printf("Radio: PARTNUM=0x%02X VERSION=0x%02X address=0x%02X channel=%d mode=%v band=%v\n",
			part, version, engine.Address(), engine.Channel(), engine.Mode(), engine.Band())
	}

	switch *mode {
	case "send":
		data, err := payload(*dataStr, *hexStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		dest, err := parseAddress(*to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !runSendMode(ctx, engine, dest, data, *retries, int(*repeat), *interval, *verbose) {
			engine.Close()
			os.Exit(2)
		}
	case "recv":
		runRecvMode(ctx, engine, *timeout, *count, *verbose, *rawOutput)
	}
}

func payload(dataStr, hexStr string) ([]byte, error) {
	var data []byte
	if hexStr != "" {
		var err error
		data, err = hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("invalid hex string: %w", err)
		}
	} else if dataStr != "" {
		data = []byte(dataStr)
	} else {
		return nil, fmt.Errorf("must specify -data or -hex for send mode")
	}
	if len(data) > link.MaxPayload {
		return nil, fmt.Errorf("%d bytes, at most %d fit in one packet: %w", len(data), link.MaxPayload, link.ErrPayloadTooLarge)
	}
	return data, nil
}

func parseAddress(s string) (uint8, error) {
	if s == "" {
		return 0, fmt.Errorf("destination (-to) is required for send mode")
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint8(v), nil
}

func runSendMode(ctx context.Context, engine *link.Engine, dest uint8, data []byte, retries, repeat int, interval time.Duration, verbose bool) bool {
	if verbose {
		fmt.Printf("Transmitting %d bytes to 0x%02X", len(data), dest)
		if repeat > 0 {
			fmt.Printf(" (repeat %d times)", repeat)
		}
		fmt.Println()
		fmt.Printf("Data (hex): %s\n", hex.EncodeToString(data))
	}

	delivered := 0
	for i := 0; i <= repeat; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return delivered == i
			case <-time.After(interval):
			}
		}

		start := time.Now()
		res, err := engine.Send(ctx, dest, data, retries)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Transmit failed: %v\n", err)
			os.Exit(1)
		}
		switch {
		case !res.Success:
			fmt.Printf("#%d: no acknowledgement from 0x%02X after %d attempt(s)\n", i+1, dest, retries+1)
		case dest == link.Broadcast:
			delivered++
			fmt.Printf("#%d: broadcast sent\n", i+1)
		default:
			delivered++
			ack := res.Value
			fmt.Printf("#%d: acknowledged by 0x%02X in %v (RSSI %d dBm, LQI %d)\n",
				i+1, ack.Sender(), time.Since(start).Round(time.Millisecond), ack.RSSI(), ack.LQI())
		}
	}

	fmt.Printf("Transmission complete: %d of %d delivered\n", delivered, repeat+1)
	return delivered == repeat+1
}

func runRecvMode(ctx context.Context, engine *link.Engine, timeout time.Duration, count int, verbose, rawOutput bool) {
	if !rawOutput {
		fmt.Println("Listening for packets (Ctrl+C to stop)...")
		fmt.Println()
	}

	packetsReceived := 0
	timeouts := 0
	startTime := time.Now()

	for ctx.Err() == nil {
		avail, err := engine.WaitForPacket(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if verbose {
				fmt.Printf("  [error] %v\n", err)
			}
			continue
		}
		if !avail {
			timeouts++
			if verbose && timeouts%5 == 0 {
				state, serr := engine.State()
				if serr == nil {
					fmt.Printf("  [waiting] timeouts=%d MARCSTATE=%s\n", timeouts, state)
				}
			}
			continue
		}

		res, err := engine.GetPayload(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Receive failed: %v\n", err)
			continue
		}
		if !res.Success {
			continue
		}
		p := res.Value
		if !p.CRCOK() {
			if verbose {
				fmt.Printf("  [dropped] CRC failed, %d bytes\n", len(p.Raw()))
			}
			continue
		}

		packetsReceived++
		data := p.Payload()

		if rawOutput {
			fmt.Println(hex.EncodeToString(data))
		} else {
			fmt.Printf("[%s] Packet #%d from 0x%02X to 0x%02X (%d bytes):\n",
				time.Now().Format("15:04:05.000"), packetsReceived, p.Sender(), p.Receiver(), len(data))
			fmt.Printf("  RSSI: %d dBm, LQI: %d\n", p.RSSI(), p.LQI())
			fmt.Printf("  Hex: %s\n", hex.EncodeToString(data))
			fmt.Printf("  ASCII: %s\n", makePrintable(data))
			fmt.Println()
		}

		if count > 0 && packetsReceived >= count {
			if !rawOutput {
				fmt.Printf("Received requested %d packets\n", count)
			}
			return
		}
	}

	if !rawOutput {
		fmt.Printf("\n\nReceived %d packets, %d timeouts in %v\n",
			packetsReceived, timeouts, time.Since(startTime).Round(time.Second))
	}
}

// startSimulation joins two simulated chips on one medium and returns the
// local engine. The peer acknowledges everything in send mode and sends a
// numbered packet every second in receive mode.
func startSimulation(ctx context.Context, settings *config.Settings, log logrus.FieldLogger, peerListens bool) (*link.Engine, error) {
	local, remote, _ := chipsim.Pair(settings.Connection.GDO2)

	opts := settings.EngineOptions(log)
	opts.CSPin = radio.NoPin
	engine, err := link.New(ctx, local, local, opts)
	if err != nil {
		return nil, err
	}
	if err := engine.Configure(settings.Session.Apply); err != nil {
		engine.Close()
		return nil, err
	}

	peerOpts := settings.EngineOptions(log.WithField("node", "sim-peer"))
	peerOpts.CSPin = radio.NoPin
	peerOpts.Address = simPeerAddress
	peer, err := link.New(ctx, remote, remote, peerOpts)
	if err != nil {
		engine.Close()
		return nil, err
	}

	go func() {
		defer peer.Close()
		if peerListens {
			for ctx.Err() == nil {
				if avail, err := peer.WaitForPacket(ctx, 100*time.Millisecond); err == nil && avail {
					peer.GetPayload(ctx)
				}
			}
			return
		}
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				peer.Send(ctx, opts.Address, []byte(fmt.Sprintf("sim %d", n)), 0)
			}
		}
	}()
	return engine, nil
}

// makePrintable converts bytes to a printable string, replacing non-printable characters
func makePrintable(data []byte) string {
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b < 127 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}
