// Package gateway forwards packets received by a link engine to a sink,
// typically Redis, so other services can consume sensor traffic without
// touching the radio.
package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/herlein/cc1101/pkg/link"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/sirupsen/logrus"
)

// Receiver is the part of link.Engine the gateway needs
type Receiver interface {
	WaitForPacket(ctx context.Context, timeout time.Duration) (bool, error)
	GetPayload(ctx context.Context) (link.Result[*link.Packet], error)
}

// Record is one received packet as published
type Record struct {
	Time     time.Time `json:"time"`
	Sender   uint8     `json:"sender"`
	Receiver uint8     `json:"receiver"`
	RSSI     int       `json:"rssi"`
	LQI      uint8     `json:"lqi"`
	Payload  string    `json:"payload"`
}

// NewRecord captures p at time now; the payload is hex encoded
func NewRecord(p *link.Packet, now time.Time) Record {
	return Record{
		Time:     now,
		Sender:   p.Sender(),
		Receiver: p.Receiver(),
		RSSI:     p.RSSI(),
		LQI:      p.LQI(),
		Payload:  hex.EncodeToString(p.Payload()),
	}
}

func (r Record) marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Sink stores or publishes records
type Sink interface {
	Record(ctx context.Context, r Record) error
}

// Stats counts what a Run saw
type Stats struct {
	Forwarded int
	Dropped   int
	Failed    int
}

// Gateway moves packets from a Receiver to a Sink
type Gateway struct {
	rx   Receiver
	sink Sink
	poll time.Duration
	log  logrus.FieldLogger
	now  func() time.Time

	nodes  *NodeTable
	expiry time.Duration
}

// New creates a gateway that waits up to poll for each packet
func New(rx Receiver, sink Sink, poll time.Duration, log logrus.FieldLogger) *Gateway {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	if poll <= 0 {
		poll = time.Second
	}
	return &Gateway{rx: rx, sink: sink, poll: poll, log: log, now: time.Now, nodes: NewNodeTable()}
}

// Nodes returns the table of senders heard so far
func (g *Gateway) Nodes() *NodeTable {
	return g.nodes
}

// SetExpiry makes Run forget senders silent for longer than d. Zero keeps
// them forever.
func (g *Gateway) SetExpiry(d time.Duration) {
	g.expiry = d
}

// Run forwards packets until ctx is done. Packets failing CRC are dropped;
// sink errors are logged and counted, and do not stop the loop. A receive
// error is retried after one poll interval.
func (g *Gateway) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for {
		if ctx.Err() != nil {
			return stats, nil
		}
		if g.expiry > 0 {
			g.nodes.Expire(g.now().Add(-g.expiry))
		}

		avail, err := g.rx.WaitForPacket(ctx, g.poll)
		if err != nil {
			if ctx.Err() != nil {
				return stats, nil
			}
			if errors.Is(err, link.ErrClosed) {
				return stats, err
			}
			g.log.WithError(err).Warn("Waiting for packet failed")
			if radio.Sleep(ctx, g.poll) != nil {
				return stats, nil
			}
			continue
		}
		if !avail {
			continue
		}

		res, err := g.rx.GetPayload(ctx)
		if err != nil {
			if errors.Is(err, link.ErrClosed) {
				return stats, err
			}
			g.log.WithError(err).Warn("Receive failed")
			if radio.Sleep(ctx, g.poll) != nil {
				return stats, nil
			}
			continue
		}
		if !res.Success {
			continue
		}

		p := res.Value
		if !p.CRCOK() {
			stats.Dropped++
			g.log.WithField("bytes", len(p.Raw())).Debug("Dropped packet with bad CRC")
			continue
		}

		rec := NewRecord(p, g.now())
		g.nodes.Update(rec)
		if err := g.sink.Record(ctx, rec); err != nil {
			stats.Failed++
			g.log.WithError(err).WithField("sender", rec.Sender).Warn("Failed to forward packet")
			continue
		}
		stats.Forwarded++
		g.log.WithFields(logrus.Fields{
			"sender": rec.Sender,
			"rssi":   rec.RSSI,
			"bytes":  len(rec.Payload) / 2,
		}).Debug("Forwarded packet")
	}
}
