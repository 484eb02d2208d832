// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

// Package config loads the helixd configuration.
//
// Configuration is layered with koanf: struct defaults, then a YAML file
// (HELIX_CONFIG or one of DefaultConfigPaths), then environment variables
// from an explicit mapping. The result is validated with struct tags and
// per-section checks.
package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Node       NodeConfig       `koanf:"node"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Tree       TreeConfig       `koanf:"tree"`
	Actor      ActorConfig      `koanf:"actor"`
	Events     EventsConfig     `koanf:"events"`
	Cluster    ClusterConfig    `koanf:"cluster"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Hosting    HostingConfig    `koanf:"hosting"`
}

// NodeConfig identifies this process in a cluster.
type NodeConfig struct {
	// ID defaults to the hostname.
	ID      string `koanf:"id"`
	Address string `koanf:"address"`
}

// SupervisorConfig holds the settings of one supervisor. Under the
// supervisor key it provides defaults for every supervisor in the tree.
type SupervisorConfig struct {
	Name                         string        `koanf:"name"`
	Strategy                     string        `koanf:"strategy" validate:"omitempty,oneof=one_for_one one_for_all rest_for_one simple_one_for_one OneForOne OneForAll RestForOne SimpleOneForOne"`
	MaxRestarts                  *uint32       `koanf:"max_restarts"`
	MaxRestartPeriod             time.Duration `koanf:"max_restart_period" validate:"gte=0"`
	ShutdownTimeout              time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	HealthCheckInterval          time.Duration `koanf:"health_check_interval" validate:"gte=0"`
	HealthCheckTimeout           time.Duration `koanf:"health_check_timeout" validate:"gte=0"`
	HealthCheckThreshold         uint32        `koanf:"health_check_threshold"`
	EnableHotCodeLoading         bool          `koanf:"enable_hot_code_loading"`
	EnableDistributedSupervision bool          `koanf:"enable_distributed_supervision"`
	AutoShutdown                 string        `koanf:"auto_shutdown" validate:"omitempty,oneof=never any_significant all_significant"`
}

// TreeConfig describes a supervisor and its children. Workers start before
// nested supervisors, each list in order.
type TreeConfig struct {
	SupervisorConfig `koanf:",squash"`
	Workers          []WorkerConfig `koanf:"workers" validate:"dive"`
	Supervisors      []TreeConfig   `koanf:"supervisors" validate:"dive"`
}

// WorkerConfig describes a worker child built from a named behavior.
type WorkerConfig struct {
	ID              string            `koanf:"id" validate:"required,child_id"`
	Name            string            `koanf:"name" validate:"omitempty,child_id"`
	Behavior        string            `koanf:"behavior" validate:"required"`
	Restart         string            `koanf:"restart" validate:"omitempty,oneof=permanent transient temporary"`
	ShutdownTimeout time.Duration     `koanf:"shutdown_timeout" validate:"gte=0"`
	Significant     *bool             `koanf:"significant"`
	MailboxSize     int               `koanf:"mailbox_size" validate:"gte=0"`
	Args            map[string]string `koanf:"args"`
}

// ActorConfig holds defaults for spawned actors.
type ActorConfig struct {
	// MailboxKind is bounded or unbounded.
	MailboxKind string        `koanf:"mailbox_kind" validate:"oneof=bounded unbounded"`
	MailboxSize int           `koanf:"mailbox_size" validate:"gte=1"`
	CallTimeout time.Duration `koanf:"call_timeout" validate:"gt=0"`
	InitTimeout time.Duration `koanf:"init_timeout" validate:"gt=0"`
}

// EventsConfig configures the supervision event bus and its consumers.
type EventsConfig struct {
	SubscriberBuffer int           `koanf:"subscriber_buffer" validate:"gte=1"`
	Journal          JournalConfig `koanf:"journal"`
	Forward          ForwardConfig `koanf:"forward"`
	NATS             NATSConfig    `koanf:"nats"`
}

// JournalConfig configures the BadgerDB event journal.
type JournalConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	TTL        time.Duration `koanf:"ttl" validate:"gte=0"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// ForwardConfig configures forwarding events to a broker.
type ForwardConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`
	// Transport is nats or memory.
	Transport string        `koanf:"transport" validate:"oneof=nats memory"`
	Breaker   BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the forwarding circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gte=0"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// NATSConfig configures the NATS connection shared by the forwarder and the
// cluster transport.
type NATSConfig struct {
	URL string `koanf:"url"`
	// Embedded runs an in-process server; URL is then ignored.
	Embedded      bool          `koanf:"embedded"`
	EmbeddedHost  string        `koanf:"embedded_host"`
	EmbeddedPort  int           `koanf:"embedded_port"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
}

// ClusterConfig configures distributed supervision.
type ClusterConfig struct {
	Enabled           bool          `koanf:"enabled"`
	HeartbeatSubject  string        `koanf:"heartbeat_subject"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"gt=0"`
	CheckInterval     time.Duration `koanf:"check_interval" validate:"gt=0"`
	HeartbeatTimeout  time.Duration `koanf:"heartbeat_timeout" validate:"gt=0"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	// ControlRateLimit caps restart and stop requests per client IP within
	// ControlRateWindow. Zero disables the limit.
	ControlRateLimit  int           `koanf:"control_rate_limit" validate:"gte=0"`
	ControlRateWindow time.Duration `koanf:"control_rate_window" validate:"gte=0"`
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"log_level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// HostingConfig tunes the suture tree hosting the runtime services.
type HostingConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}
