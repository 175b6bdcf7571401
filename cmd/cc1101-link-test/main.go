// cc1101-link-test: Test link reliability between two CC1101 radios
//
// This program opens two radios, one as sender and one as receiver, and
// sends acknowledged packets at progressively faster rates. Each run
// reports delivery, acknowledgement latency and signal strength.
//
// Usage:
//
//	# Two radios on SPI0 and SPI1 of the same host
//	./cc1101-link-test -tx etc/cc1101/bus0.settings.json -rx etc/cc1101/bus1.settings.json
//
//	# Simulated pair
//	./cc1101-link-test -sim -n 20
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/device"
	"github.com/herlein/cc1101/pkg/link"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/sirupsen/logrus"
)

type TestResult struct {
	Delay       time.Duration
	Sent        int
	Acked       int
	Received    int
	Matched     int
	Mismatched  int
	SuccessRate float64
	AvgRSSI     int
	MinRSSI     int
	MaxRSSI     int
	AvgLatency  time.Duration
}

func main() {
	txPath := flag.String("tx", "", "Sender settings file (default: Bus0, address 0x0F)")
	rxPath := flag.String("rx", "", "Receiver settings file (default: Bus1 with GDO2 on 23, address 0x21)")
	backendName := flag.String("b", "spi", device.BackendFlagUsage())
	sim := flag.Bool("sim", false, "Run against two simulated chips")
	packetCount := flag.Int("n", 10, "Number of packets per test run")
	retries := flag.Int("retries", 3, "Retries per packet")
	initialDelay := flag.Duration("delay", 1*time.Second, "Initial delay between packets")
	minDelay := flag.Duration("min-delay", 10*time.Millisecond, "Minimum delay between packets")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	txSettings := loadSettings(*txPath, config.Bus0, config.DefaultGDO2Pin, link.DefaultAddress)
	rxSettings := loadSettings(*rxPath, config.Bus1, config.DefaultGDO2Pin+1, 0x21)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender, receiver *link.Engine
	var err error
	if *sim {
		sender, receiver, err = openSimulated(ctx, txSettings, rxSettings, log)
	} else {
		sender, receiver, err = openRadios(ctx, *backendName, txSettings, rxSettings, log)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sender.Close()
	defer receiver.Close()

	fmt.Printf("Sender:   address 0x%02X, channel %d, %v, %v\n", sender.Address(), sender.Channel(), sender.Mode(), sender.Band())
	fmt.Printf("Receiver: address 0x%02X, channel %d, %v, %v\n", receiver.Address(), receiver.Channel(), receiver.Mode(), receiver.Band())
	fmt.Println()

	var results []TestResult
	delay := *initialDelay

	for delay >= *minDelay && ctx.Err() == nil {
		fmt.Printf("========================================\n")
		fmt.Printf("TEST RUN: %d packets, %v delay\n", *packetCount, delay)
		fmt.Printf("========================================\n")

		result := runTest(ctx, sender, receiver, *packetCount, *retries, delay, *verbose)
		results = append(results, result)

		fmt.Printf("\nResult: %d/%d packets delivered (%.1f%% success)\n",
			result.Matched, result.Sent, result.SuccessRate)
		fmt.Printf("        Acked: %d, Received: %d, Mismatched: %d\n",
			result.Acked, result.Received, result.Mismatched)
		if result.Acked > 0 {
			fmt.Printf("        Ack latency: avg=%v\n", result.AvgLatency.Round(time.Millisecond))
		}
		if result.Received > 0 {
			fmt.Printf("        RSSI: avg=%d dBm, min=%d dBm, max=%d dBm\n",
				result.AvgRSSI, result.MinRSSI, result.MaxRSSI)
		}
		fmt.Println()

		if result.SuccessRate < 50.0 {
			fmt.Println("Success rate below 50%, stopping tests.")
			break
		}
		delay = delay / 2
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("SUMMARY")
	fmt.Println("========================================")
	fmt.Printf("%-15s %-8s %-8s %-10s %-10s %-10s\n", "Delay", "Sent", "Acked", "Success%", "Avg RSSI", "Latency")
	fmt.Println("----------------------------------------------------------------")
	for _, r := range results {
		fmt.Printf("%-15v %-8d %-8d %-10.1f %-10d %-10v\n",
			r.Delay, r.Sent, r.Acked, r.SuccessRate, r.AvgRSSI, r.AvgLatency.Round(time.Millisecond))
	}
}

func loadSettings(path string, preset config.BusPreset, gdo2 int, addr uint8) *config.Settings {
	if path != "" {
		s, err := config.LoadSettings(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load settings: %v\n", err)
			os.Exit(1)
		}
		return s
	}
	conn, err := config.NewConnection(preset, gdo2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s := config.DefaultSettings()
	s.Connection = conn
	s.Session.Address = addr
	return s
}

func openRadios(ctx context.Context, backendName string, tx, rx *config.Settings, log *logrus.Logger) (*link.Engine, *link.Engine, error) {
	backend, err := device.ParseBackend(backendName)
	if err != nil {
		return nil, nil, err
	}
	sender, _, err := device.OpenEngine(ctx, backend, tx, "0", log.WithField("radio", "tx"))
	if err != nil {
		return nil, nil, fmt.Errorf("sender: %w", err)
	}
	receiver, _, err := device.OpenEngine(ctx, backend, rx, "1", log.WithField("radio", "rx"))
	if err != nil {
		sender.Close()
		return nil, nil, fmt.Errorf("receiver: %w", err)
	}
	return sender, receiver, nil
}

func openSimulated(ctx context.Context, tx, rx *config.Settings, log *logrus.Logger) (*link.Engine, *link.Engine, error) {
	a, b, _ := chipsim.Pair(tx.Connection.GDO2)

	open := func(chip *chipsim.Chip, s *config.Settings, name string) (*link.Engine, error) {
		opts := s.EngineOptions(log.WithField("radio", name))
		opts.GDO2Pin = tx.Connection.GDO2
		opts.CSPin = radio.NoPin
		return link.New(ctx, chip, chip, opts)
	}

	sender, err := open(a, tx, "tx")
	if err != nil {
		return nil, nil, fmt.Errorf("sender: %w", err)
	}
	receiver, err := open(b, rx, "rx")
	if err != nil {
		sender.Close()
		return nil, nil, fmt.Errorf("receiver: %w", err)
	}
	return sender, receiver, nil
}

func testPacket(seq, count int) []byte {
	pkt := make([]byte, 16)
	pkt[0] = 0xAA
	pkt[1] = byte(seq)
	pkt[2] = byte(count)
	pkt[3] = 0x55
	copy(pkt[4:], "TEST1234")
	return pkt
}

func runTest(ctx context.Context, sender, receiver *link.Engine, count, retries int, delay time.Duration, verbose bool) TestResult {
	result := TestResult{
		Delay:   delay,
		Sent:    count,
		MinRSSI: 0,
		MaxRSSI: -200,
	}

	type recvPacket struct {
		data []byte
		rssi int
	}
	recvChan := make(chan recvPacket, count*(retries+1))
	recvCtx, stopRecv := context.WithCancel(ctx)
	var recvWg sync.WaitGroup

	recvWg.Add(1)
	go func() {
		defer recvWg.Done()
		for recvCtx.Err() == nil {
			avail, err := receiver.WaitForPacket(recvCtx, 200*time.Millisecond)
			if err != nil || !avail {
				continue
			}
			res, err := receiver.GetPayload(recvCtx)
			if err != nil || !res.Success || !res.Value.CRCOK() {
				continue
			}
			select {
			case recvChan <- recvPacket{data: res.Value.Payload(), rssi: res.Value.RSSI()}:
			default:
			}
		}
	}()

	var totalLatency time.Duration
	dest := receiver.Address()
	for i := 0; i < count && ctx.Err() == nil; i++ {
		pkt := testPacket(i, count)
		if verbose {
			fmt.Printf("  TX[%02d]: %s\n", i, hex.EncodeToString(pkt))
		}

		start := time.Now()
		res, err := sender.Send(ctx, dest, pkt, retries)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "  TX[%02d] ERROR: %v\n", i, err)
		case res.Success:
			result.Acked++
			totalLatency += time.Since(start)
		case verbose:
			fmt.Printf("  TX[%02d]: no acknowledgement\n", i)
		}

		if i < count-1 {
			time.Sleep(delay)
		}
	}

	time.Sleep(200 * time.Millisecond)
	stopRecv()
	recvWg.Wait()
	close(recvChan)

	// Retries after a lost ACK deliver the same sequence number again
	matched := make(map[int]bool)
	var totalRSSI int
	for rpkt := range recvChan {
		result.Received++
		if verbose {
			fmt.Printf("  RX: %s (RSSI: %d dBm)\n", hex.EncodeToString(rpkt.data), rpkt.rssi)
		}

		if len(rpkt.data) >= 4 && rpkt.data[0] == 0xAA && rpkt.data[3] == 0x55 {
			seq := int(rpkt.data[1])
			if seq < count && !matched[seq] {
				if string(rpkt.data) == string(testPacket(seq, count)) {
					matched[seq] = true
					result.Matched++
				} else {
					result.Mismatched++
				}
			}
		} else if verbose {
			fmt.Printf("       ^ Not a test packet\n")
		}

		totalRSSI += rpkt.rssi
		if rpkt.rssi < result.MinRSSI {
			result.MinRSSI = rpkt.rssi
		}
		if rpkt.rssi > result.MaxRSSI {
			result.MaxRSSI = rpkt.rssi
		}
	}

	if result.Received > 0 {
		result.AvgRSSI = totalRSSI / result.Received
	}
	if result.Acked > 0 {
		result.AvgLatency = totalLatency / time.Duration(result.Acked)
	}
	result.SuccessRate = float64(result.Matched) / float64(result.Sent) * 100.0

	if verbose {
		var missing []int
		for i := 0; i < count; i++ {
			if !matched[i] {
				missing = append(missing, i)
			}
		}
		if len(missing) > 0 {
			fmt.Printf("  Missing packets: %v\n", missing)
		}
	}

	return result
}
