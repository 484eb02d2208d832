// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when HELIX_CONFIG is unset.
var DefaultConfigPaths = []string{
	"helix.yaml",
	"helix.yml",
	"/etc/helix/helix.yaml",
	"/etc/helix/helix.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HELIX_CONFIG"

func defaultMaxRestarts() *uint32 {
	n := uint32(5)
	return &n
}

func defaultConfig() *Config {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "helix-node"
	}

	return &Config{
		Node: NodeConfig{
			ID: hostname,
		},
		Supervisor: SupervisorConfig{
			Name:                 "root",
			Strategy:             "one_for_one",
			MaxRestarts:          defaultMaxRestarts(),
			MaxRestartPeriod:     60 * time.Second,
			ShutdownTimeout:      30 * time.Second,
			HealthCheckInterval:  30 * time.Second,
			HealthCheckTimeout:   5 * time.Second,
			HealthCheckThreshold: 3,
			AutoShutdown:         "never",
		},
		Actor: ActorConfig{
			MailboxKind: "bounded",
			MailboxSize: 1024,
			CallTimeout: 5 * time.Second,
			InitTimeout: 30 * time.Second,
		},
		Events: EventsConfig{
			SubscriberBuffer: 256,
			Journal: JournalConfig{
				Enabled:  false,
				Path:     "/data/helix/journal",
				InMemory: false,
				TTL:      7 * 24 * time.Hour,
			},
			Forward: ForwardConfig{
				Enabled:   false,
				Topic:     "helix.supervision.events",
				Transport: "nats",
				Breaker: BreakerConfig{
					MaxRequests:      1,
					Interval:         time.Minute,
					Timeout:          30 * time.Second,
					FailureThreshold: 5,
				},
			},
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				Embedded:      false,
				EmbeddedHost:  "127.0.0.1",
				EmbeddedPort:  4222,
				MaxReconnects: -1,
				ReconnectWait: 2 * time.Second,
			},
		},
		Cluster: ClusterConfig{
			Enabled:           false,
			HeartbeatSubject:  "helix.cluster.heartbeat",
			HeartbeatInterval: 5 * time.Second,
			CheckInterval:     30 * time.Second,
			HeartbeatTimeout:  5 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            9464,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			ControlRateLimit:  30,
			ControlRateWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Hosting: HostingConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the file Load would read, or "".
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"helix_node_id":      "node.id",
	"helix_node_address": "node.address",

	"helix_supervisor_name":                  "supervisor.name",
	"helix_supervisor_strategy":              "supervisor.strategy",
	"helix_supervisor_max_restarts":          "supervisor.max_restarts",
	"helix_supervisor_max_restart_period":    "supervisor.max_restart_period",
	"helix_supervisor_shutdown_timeout":      "supervisor.shutdown_timeout",
	"helix_supervisor_health_check_interval": "supervisor.health_check_interval",
	"helix_supervisor_health_check_timeout":  "supervisor.health_check_timeout",
	"helix_hot_code_loading":                 "supervisor.enable_hot_code_loading",
	"helix_distributed_supervision":          "supervisor.enable_distributed_supervision",

	"helix_mailbox_kind": "actor.mailbox_kind",
	"helix_mailbox_size": "actor.mailbox_size",
	"helix_call_timeout": "actor.call_timeout",
	"helix_init_timeout": "actor.init_timeout",

	"helix_events_buffer":     "events.subscriber_buffer",
	"helix_journal_enabled":   "events.journal.enabled",
	"helix_journal_path":      "events.journal.path",
	"helix_journal_ttl":       "events.journal.ttl",
	"helix_forward_enabled":   "events.forward.enabled",
	"helix_forward_topic":     "events.forward.topic",
	"helix_forward_transport": "events.forward.transport",
	"nats_url":                "events.nats.url",
	"nats_embedded":           "events.nats.embedded",
	"nats_embedded_port":      "events.nats.embedded_port",

	"helix_cluster_enabled":            "cluster.enabled",
	"helix_cluster_heartbeat_interval": "cluster.heartbeat_interval",
	"helix_cluster_heartbeat_timeout":  "cluster.heartbeat_timeout",

	"http_enabled": "server.enabled",
	"http_host":    "server.host",
	"http_port":    "server.port",

	"http_control_rate_limit": "server.control_rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables to config paths.
// Unknown variables are dropped so the environment cannot inject keys.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile calls callback with the reloaded configuration whenever
// path changes. Reload errors are passed to onError.
func WatchConfigFile(path string, callback func(*Config), onError func(error)) error {
	provider := file.Provider(path)
	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		cfg, err := LoadFile(path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(cfg)
	})
}
