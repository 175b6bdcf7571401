package gateway

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultChannel is the pub/sub channel records are published on
	DefaultChannel = "cc1101:packets"
	// DefaultKeyPrefix prefixes the per-sender last-seen keys
	DefaultKeyPrefix = "cc1101:node"
)

// RedisSink publishes each record on a channel and keeps the latest record
// per sender under <prefix>:<sender hex>
type RedisSink struct {
	db      *redis.Client
	channel string
	prefix  string
}

// NewRedisSink connects to the Redis server at addr, database 0
func NewRedisSink(addr, channel, prefix string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSink{
		db:      redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		prefix:  prefix,
	}
}

// Ping checks the server is reachable
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Key returns the last-seen key for a sender
func (s *RedisSink) Key(sender uint8) string {
	return fmt.Sprintf("%s:%02x", s.prefix, sender)
}

func (s *RedisSink) Record(ctx context.Context, r Record) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}

	pipe := s.db.TxPipeline()
	pipe.Set(ctx, s.Key(r.Sender), data, 0)
	pipe.Publish(ctx, s.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write failed: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.db.Close()
}
