// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/events"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
)

const (
	// DefaultHeartbeatTimeout is how long a node may stay silent before it
	// is considered failed.
	DefaultHeartbeatTimeout = 5 * time.Minute
	// DefaultCheckInterval is how often Serve looks for silent nodes.
	DefaultCheckInterval = 30 * time.Second
)

// ErrUnknownNode is returned for a node id the coordinator does not track.
var ErrUnknownNode = errors.New("unknown node")

// RemoteNode is the coordinator's view of another node.
type RemoteNode struct {
	NodeID        string    `json:"node_id"`
	Address       string    `json:"address"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Online        bool      `json:"online"`
	Supervisors   []string  `json:"supervisors"`
}

func (n RemoteNode) clone() RemoteNode {
	n.Supervisors = slices.Clone(n.Supervisors)
	return n
}

// Config configures a Coordinator.
type Config struct {
	NodeID           string
	Address          string
	HeartbeatTimeout time.Duration
	CheckInterval    time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for heartbeat bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSupervisionEvents mirrors supervisor lifecycle events from bus as
// coordination messages while Serve runs.
func WithSupervisionEvents(bus *events.Broadcaster[supervisor.Event]) Option {
	return func(c *Coordinator) { c.supervision = bus }
}

// Coordinator tracks remote nodes by their heartbeats and the supervisors
// running locally. It only signals: a node that goes silent produces one
// FailoverRequest per supervisor it owned, and acting on it is left to
// whoever subscribes.
type Coordinator struct {
	cfg         Config
	now         func() time.Time
	bus         *events.Broadcaster[Message]
	supervision *events.Broadcaster[supervisor.Event]
	logger      zerolog.Logger

	mu    sync.RWMutex
	nodes map[string]*RemoteNode
	local map[string]struct{}
}

// New creates a coordinator for the local node.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if cfg.NodeID == "" {
		return nil, errors.New("coordinator: node id is required")
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}

	c := &Coordinator{
		cfg:   cfg,
		now:   time.Now,
		bus:   events.NewBroadcaster[Message]("coordination"),
		nodes: make(map[string]*RemoteNode),
		local: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent("coordinator").With().Str("node_id", cfg.NodeID).Logger()
	return c, nil
}

// NodeID returns the local node id.
func (c *Coordinator) NodeID() string { return c.cfg.NodeID }

// Address returns the local node address.
func (c *Coordinator) Address() string { return c.cfg.Address }

// Events returns the coordination message bus.
func (c *Coordinator) Events() *events.Broadcaster[Message] { return c.bus }

// Subscribe is shorthand for Events().Subscribe.
func (c *Coordinator) Subscribe(buffer int) *events.Subscription[Message] {
	return c.bus.Subscribe(buffer)
}

// Close closes the message bus.
func (c *Coordinator) Close() { c.bus.Close() }

func (c *Coordinator) emit(m Message) {
	m.Time = c.now()
	c.bus.Publish(m)
}

// AddRemoteNode starts tracking a node and announces it. A zero
// LastHeartbeat counts as a heartbeat now.
func (c *Coordinator) AddRemoteNode(node RemoteNode) {
	node = node.clone()
	if node.LastHeartbeat.IsZero() {
		node.LastHeartbeat = c.now()
	}
	node.Online = true

	c.mu.Lock()
	c.nodes[node.NodeID] = &node
	online := c.onlineLocked()
	c.mu.Unlock()

	metrics.SetClusterNodesOnline(online)
	c.logger.Info().
		Str("remote_node", node.NodeID).
		Str("address", node.Address).
		Msg("Remote node added")
	c.emit(Message{Kind: NodeJoined, NodeID: node.NodeID, Address: node.Address})
}

// RemoveNode stops tracking a node.
func (c *Coordinator) RemoveNode(id string) error {
	c.mu.Lock()
	_, ok := c.nodes[id]
	delete(c.nodes, id)
	online := c.onlineLocked()
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	metrics.SetClusterNodesOnline(online)
	c.logger.Info().Str("remote_node", id).Msg("Remote node removed")
	c.emit(Message{Kind: NodeLeft, NodeID: id})
	return nil
}

// Heartbeat records a heartbeat from a remote node. Unknown nodes are added
// and nodes previously marked failed come back online.
func (c *Coordinator) Heartbeat(hb Heartbeat) {
	if hb.NodeID == "" || hb.NodeID == c.cfg.NodeID {
		return
	}
	metrics.RecordHeartbeat("received")

	c.mu.Lock()
	node, known := c.nodes[hb.NodeID]
	if !known {
		c.mu.Unlock()
		c.AddRemoteNode(RemoteNode{NodeID: hb.NodeID, Address: hb.Address, Supervisors: hb.Supervisors})
		c.emit(Message{Kind: HeartbeatReceived, NodeID: hb.NodeID})
		return
	}
	rejoined := !node.Online
	node.LastHeartbeat = c.now()
	node.Online = true
	if hb.Address != "" {
		node.Address = hb.Address
	}
	node.Supervisors = slices.Clone(hb.Supervisors)
	address := node.Address
	online := c.onlineLocked()
	c.mu.Unlock()

	if rejoined {
		metrics.SetClusterNodesOnline(online)
		c.logger.Info().Str("remote_node", hb.NodeID).Msg("Remote node back online")
		c.emit(Message{Kind: NodeJoined, NodeID: hb.NodeID, Address: address})
	}
	c.emit(Message{Kind: HeartbeatReceived, NodeID: hb.NodeID})
}

// HandleNodeFailure marks a node offline and requests failover for each of
// its supervisors.
func (c *Coordinator) HandleNodeFailure(id string) error {
	c.mu.Lock()
	node, ok := c.nodes[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	node.Online = false
	sups := slices.Clone(node.Supervisors)
	online := c.onlineLocked()
	c.mu.Unlock()

	metrics.SetClusterNodesOnline(online)
	c.logger.Warn().
		Str("remote_node", id).
		Strs("supervisors", sups).
		Msg("Remote node failed, requesting failover")

	for _, sup := range sups {
		metrics.RecordFailoverRequest()
		c.emit(Message{Kind: FailoverRequest, NodeID: id, Supervisor: sup})
	}
	return nil
}

// CheckNodes fails every online node whose last heartbeat is older than the
// heartbeat timeout and returns their ids.
func (c *Coordinator) CheckNodes() []string {
	now := c.now()

	c.mu.RLock()
	var silent []string
	for id, node := range c.nodes {
		if node.Online && now.Sub(node.LastHeartbeat) > c.cfg.HeartbeatTimeout {
			silent = append(silent, id)
		}
	}
	c.mu.RUnlock()

	sort.Strings(silent)
	for _, id := range silent {
		_ = c.HandleNodeFailure(id)
	}
	return silent
}

// Nodes returns snapshots of the tracked nodes sorted by id.
func (c *Coordinator) Nodes() []RemoteNode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]RemoteNode, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Node returns one node's snapshot.
func (c *Coordinator) Node(id string) (RemoteNode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[id]
	if !ok {
		return RemoteNode{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return n.clone(), nil
}

func (c *Coordinator) onlineLocked() int {
	n := 0
	for _, node := range c.nodes {
		if node.Online {
			n++
		}
	}
	return n
}

// RegisterSupervisor records a local supervisor so heartbeats advertise it.
func (c *Coordinator) RegisterSupervisor(name string) {
	c.mu.Lock()
	_, dup := c.local[name]
	c.local[name] = struct{}{}
	c.mu.Unlock()

	if !dup {
		c.emit(Message{Kind: SupervisorStarted, NodeID: c.cfg.NodeID, Supervisor: name})
	}
}

// UnregisterSupervisor forgets a local supervisor. A failed supervisor is
// announced with SupervisorFailed.
func (c *Coordinator) UnregisterSupervisor(name string, failed bool, reason string) {
	c.mu.Lock()
	_, ok := c.local[name]
	delete(c.local, name)
	c.mu.Unlock()

	if ok && failed {
		c.logger.Warn().Str("supervisor", name).Str("reason", reason).Msg("Local supervisor failed")
		c.emit(Message{Kind: SupervisorFailed, NodeID: c.cfg.NodeID, Supervisor: name, Reason: reason})
	}
}

// LocalSupervisors returns the registered local supervisors, sorted.
func (c *Coordinator) LocalSupervisors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.local))
	for name := range c.local {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// observe mirrors one supervisor lifecycle event. Only supervisors started
// with distributed supervision enabled are registered.
func (c *Coordinator) observe(ev supervisor.Event) {
	switch ev.Kind {
	case supervisor.EventSupervisorStarted:
		if ev.Distributed {
			c.RegisterSupervisor(ev.Supervisor)
		}
	case supervisor.EventSupervisorStopped:
		failed := ev.Reason != "normal" && ev.Reason != "shutdown"
		c.UnregisterSupervisor(ev.Supervisor, failed, ev.Reason)
	}
}

// Serve implements suture.Service. It checks for silent nodes every check
// interval and mirrors supervision events when configured to.
func (c *Coordinator) Serve(ctx context.Context) error {
	var supervision <-chan supervisor.Event
	if c.supervision != nil {
		sub := c.supervision.Subscribe(256)
		defer sub.Close()
		supervision = sub.C()
	}

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	c.logger.Info().
		Dur("check_interval", c.cfg.CheckInterval).
		Dur("heartbeat_timeout", c.cfg.HeartbeatTimeout).
		Msg("Coordinator started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Coordinator stopped")
			return ctx.Err()
		case <-ticker.C:
			c.CheckNodes()
		case ev, ok := <-supervision:
			if !ok {
				supervision = nil
				continue
			}
			c.observe(ev)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (c *Coordinator) String() string {
	return "coordinator:" + c.cfg.NodeID
}
