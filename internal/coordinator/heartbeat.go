// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

const (
	// DefaultHeartbeatSubject is the core NATS subject heartbeats use.
	DefaultHeartbeatSubject = "helix.cluster.heartbeat"
	// DefaultHeartbeatInterval is how often a node announces itself.
	DefaultHeartbeatInterval = 5 * time.Second
)

// Heartbeat is the payload each node publishes periodically.
type Heartbeat struct {
	NodeID      string    `json:"node_id"`
	Address     string    `json:"address,omitempty"`
	Supervisors []string  `json:"supervisors"`
	SentAt      time.Time `json:"sent_at"`
}

// Connect opens the NATS connection used for heartbeats.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// TransportConfig configures the heartbeat transport.
type TransportConfig struct {
	Subject  string
	Interval time.Duration
}

// Transport exchanges heartbeats between coordinators over core NATS.
type Transport struct {
	nc       *nats.Conn
	coord    *Coordinator
	subject  string
	interval time.Duration
	logger   zerolog.Logger
}

// NewTransport creates a heartbeat transport on an open connection. The
// connection is not closed by the transport.
func NewTransport(nc *nats.Conn, coord *Coordinator, cfg TransportConfig) *Transport {
	if cfg.Subject == "" {
		cfg.Subject = DefaultHeartbeatSubject
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHeartbeatInterval
	}
	return &Transport{
		nc:       nc,
		coord:    coord,
		subject:  cfg.Subject,
		interval: cfg.Interval,
		logger:   logging.WithComponent("coordinator").With().Str("subject", cfg.Subject).Logger(),
	}
}

// Publish sends one heartbeat for the local node.
func (t *Transport) Publish() error {
	hb := Heartbeat{
		NodeID:      t.coord.NodeID(),
		Address:     t.coord.Address(),
		Supervisors: t.coord.LocalSupervisors(),
		SentAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	if err := t.nc.Publish(t.subject, data); err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	metrics.RecordHeartbeat("sent")
	return nil
}

func (t *Transport) receive(msg *nats.Msg) {
	var hb Heartbeat
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		t.logger.Warn().Err(err).Msg("Dropping malformed heartbeat")
		return
	}
	t.coord.Heartbeat(hb)
}

// Serve implements suture.Service. It subscribes to heartbeats from other
// nodes and publishes the local one every interval, starting immediately.
func (t *Transport) Serve(ctx context.Context) error {
	sub, err := t.nc.Subscribe(t.subject, t.receive)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", t.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			t.logger.Debug().Err(err).Msg("Heartbeat unsubscribe failed")
		}
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if err := t.Publish(); err != nil {
			t.logger.Warn().Err(err).Msg("Heartbeat not sent")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (t *Transport) String() string {
	return "heartbeat-transport:" + t.subject
}
