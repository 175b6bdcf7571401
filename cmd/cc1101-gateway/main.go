// cc1101-gateway: Forward received CC1101 packets to Redis
//
// Every packet that passes CRC is published as JSON on a Redis channel and
// stored as the latest record of its sender. Packets addressed to this node
// are acknowledged as usual.
//
// Examples:
//
//	# Forward to a local Redis
//	./cc1101-gateway -c etc/cc1101/gateway.settings.json
//
//	# Watch the traffic
//	redis-cli subscribe cc1101:packets
//	redis-cli get cc1101:node:21
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/device"
	"github.com/herlein/cc1101/pkg/gateway"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

func main() {
	settingsPath := flag.String("c", "", "Settings file path (default: built-in Bus0 settings)")
	backendName := flag.String("b", "spi", device.BackendFlagUsage())
	deviceSel := flag.String("d", "", transport.SelectorFlagUsage())
	redisAddr := flag.String("redis", "localhost:6379", "Redis server address")
	channel := flag.String("channel", gateway.DefaultChannel, "Redis pub/sub channel")
	prefix := flag.String("prefix", gateway.DefaultKeyPrefix, "Key prefix for per-sender records")
	poll := flag.Duration("poll", time.Second, "Packet wait per loop iteration")
	expire := flag.Duration("expire", 10*time.Minute, "Forget nodes silent for this long (0 = never)")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := gateway.NewRedisSink(*redisAddr, *channel, *prefix)
	defer sink.Close()
	if err := sink.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	engine, h, err := device.OpenEngine(ctx, backend, settings, *deviceSel, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	log.WithFields(logrus.Fields{
		"device":  h.Name,
		"address": fmt.Sprintf("0x%02X", engine.Address()),
		"channel": engine.Channel(),
		"mode":    engine.Mode(),
		"band":    engine.Band(),
		"redis":   *redisAddr,
	}).Info("Gateway started")

	gw := gateway.New(engine, sink, *poll, log)
	gw.SetExpiry(*expire)
	gw.Nodes().SetCallbacks(
		func(n gateway.NodeInfo) {
			log.WithFields(logrus.Fields{"node": fmt.Sprintf("0x%02X", n.Address), "rssi": n.LastRSSI}).Info("New node")
		},
		func(n gateway.NodeInfo) {
			log.WithFields(logrus.Fields{"node": fmt.Sprintf("0x%02X", n.Address), "packets": n.Packets}).Info("Node lost")
		},
	)

	start := time.Now()
	stats, err := gw.Run(ctx)
	for _, n := range gw.Nodes().All() {
		fmt.Printf("  0x%02X: %d packets, RSSI %.1f dBm (max %d), last seen %s\n",
			n.Address, n.Packets, n.RSSI, n.MaxRSSI, n.LastSeen.Format("15:04:05"))
	}
	log.WithFields(logrus.Fields{
		"forwarded": stats.Forwarded,
		"dropped":   stats.Dropped,
		"failed":    stats.Failed,
		"uptime":    time.Since(start).Round(time.Second),
	}).Info("Gateway stopped")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
