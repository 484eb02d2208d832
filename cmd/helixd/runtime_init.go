// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package main

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/config"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/coordinator"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/events"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
)

// Components holds the optional sidecars of the runtime for lifecycle
// management. Every field may be nil.
type Components struct {
	natsServer *events.EmbeddedServer
	natsURL    string

	Journal   *events.Journal[supervisor.Event]
	Forwarder *events.Forwarder[supervisor.Event]
	publisher message.Publisher

	Coordinator *coordinator.Coordinator
	Transport   *coordinator.Transport
	natsConn    *natsgo.Conn
}

// InitComponents starts NATS if any component needs it, then builds the
// journal, the forwarder and the coordinator as configured. On error,
// whatever was already opened is closed.
func InitComponents(cfg *config.Config, tree *supervisor.Tree) (c *Components, err error) {
	c = &Components{}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	if cfg.UsesNATS() {
		if err = c.initNATS(cfg.Events.NATS); err != nil {
			return c, err
		}
	}
	if cfg.Events.Journal.Enabled {
		if err = c.initJournal(cfg.Events, tree); err != nil {
			return c, err
		}
	} else {
		logging.Info().Msg("Event journal disabled (HELIX_JOURNAL_ENABLED=false)")
	}
	if cfg.Events.Forward.Enabled {
		if err = c.initForwarder(cfg.Events, tree); err != nil {
			return c, err
		}
	}
	if cfg.Cluster.Enabled {
		if err = c.initCluster(cfg, tree); err != nil {
			return c, err
		}
	} else {
		logging.Info().Msg("Distributed supervision disabled (HELIX_CLUSTER_ENABLED=false)")
	}
	return c, nil
}

func (c *Components) initNATS(nc config.NATSConfig) error {
	if !nc.Embedded {
		c.natsURL = nc.URL
		logging.Info().Str("url", c.natsURL).Msg("Using external NATS server")
		return nil
	}
	srv, err := events.NewEmbeddedServer(events.EmbeddedServerConfig{
		Host: nc.EmbeddedHost,
		Port: nc.EmbeddedPort,
	})
	if err != nil {
		return fmt.Errorf("start embedded NATS: %w", err)
	}
	c.natsServer = srv
	c.natsURL = srv.ClientURL()
	logging.Info().Str("url", c.natsURL).Msg("Embedded NATS server started")
	return nil
}

func (c *Components) initJournal(ec config.EventsConfig, tree *supervisor.Tree) error {
	j, err := events.OpenJournal(events.JournalConfig{
		Path:       ec.Journal.Path,
		InMemory:   ec.Journal.InMemory,
		TTL:        ec.Journal.TTL,
		SyncWrites: ec.Journal.SyncWrites,
		Buffer:     ec.SubscriberBuffer,
	}, tree.Events())
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	c.Journal = j
	logging.Info().
		Str("path", ec.Journal.Path).
		Bool("in_memory", ec.Journal.InMemory).
		Dur("ttl", ec.Journal.TTL).
		Msg("Event journal opened")
	return nil
}

func (c *Components) initForwarder(ec config.EventsConfig, tree *supervisor.Tree) error {
	logger := events.NewWatermillLogger()
	switch ec.Forward.Transport {
	case "memory":
		c.publisher = events.NewInProcessPubSub(logger)
	default:
		pub, err := events.NewNATSPublisher(events.NATSConfig{
			URL:           c.natsURL,
			MaxReconnects: ec.NATS.MaxReconnects,
			ReconnectWait: ec.NATS.ReconnectWait,
		}, logger)
		if err != nil {
			return err
		}
		c.publisher = pub
	}

	breaker := events.DefaultCircuitBreakerConfig("event-forwarder")
	if b := ec.Forward.Breaker; b.FailureThreshold > 0 {
		breaker.MaxRequests = b.MaxRequests
		breaker.Interval = b.Interval
		breaker.Timeout = b.Timeout
		breaker.FailureThreshold = b.FailureThreshold
	}
	c.Forwarder = events.NewForwarder(tree.Events(), c.publisher, events.ForwarderConfig{
		Topic:   ec.Forward.Topic,
		Buffer:  ec.SubscriberBuffer,
		Breaker: breaker,
	})
	logging.Info().
		Str("topic", ec.Forward.Topic).
		Str("transport", ec.Forward.Transport).
		Msg("Event forwarding enabled")
	return nil
}

func (c *Components) initCluster(cfg *config.Config, tree *supervisor.Tree) error {
	coord, err := coordinator.New(coordinator.Config{
		NodeID:           cfg.Node.ID,
		Address:          cfg.Node.Address,
		HeartbeatTimeout: cfg.Cluster.HeartbeatTimeout,
		CheckInterval:    cfg.Cluster.CheckInterval,
	}, coordinator.WithSupervisionEvents(tree.Events()))
	if err != nil {
		return err
	}
	c.Coordinator = coord

	nc, err := coordinator.Connect(c.natsURL, "helix-"+cfg.Node.ID)
	if err != nil {
		return err
	}
	c.natsConn = nc
	c.Transport = coordinator.NewTransport(nc, coord, coordinator.TransportConfig{
		Subject:  cfg.Cluster.HeartbeatSubject,
		Interval: cfg.Cluster.HeartbeatInterval,
	})
	logging.Info().
		Str("node_id", cfg.Node.ID).
		Str("subject", cfg.Cluster.HeartbeatSubject).
		Msg("Distributed supervision enabled")
	return nil
}

// Close releases the components in reverse order of creation.
func (c *Components) Close() {
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.Coordinator != nil {
		c.Coordinator.Close()
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if c.Journal != nil {
		if err := c.Journal.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event journal")
		}
	}
	if c.natsServer != nil {
		c.natsServer.Shutdown()
	}
}
