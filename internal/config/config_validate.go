// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package config

import (
	"errors"
	"fmt"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/validation"
)

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks struct tags, then the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	var errs []error
	if c.Node.ID == "" {
		errs = append(errs, &ValidationError{Field: "node.id", Message: "must not be empty"})
	}
	if c.Events.Journal.Enabled && !c.Events.Journal.InMemory && c.Events.Journal.Path == "" {
		errs = append(errs, &ValidationError{Field: "events.journal.path", Message: "required unless in_memory is set"})
	}
	if c.Events.Forward.Enabled && c.Events.Forward.Topic == "" {
		errs = append(errs, &ValidationError{Field: "events.forward.topic", Message: "required when forwarding is enabled"})
	}
	if c.UsesNATS() && !c.Events.NATS.Embedded && c.Events.NATS.URL == "" {
		errs = append(errs, &ValidationError{Field: "events.nats.url", Message: "required unless embedded is set"})
	}
	if c.Cluster.Enabled && c.Cluster.HeartbeatTimeout <= c.Cluster.HeartbeatInterval {
		errs = append(errs, &ValidationError{
			Field:   "cluster.heartbeat_timeout",
			Message: fmt.Sprintf("must exceed heartbeat_interval (%s)", c.Cluster.HeartbeatInterval),
		})
	}
	errs = append(errs, validateTree("tree", c.Tree)...)
	return errors.Join(errs...)
}

// UsesNATS reports whether any component needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.Cluster.Enabled || (c.Events.Forward.Enabled && c.Events.Forward.Transport == "nats")
}

// validateTree rejects duplicate child ids among siblings.
func validateTree(path string, t TreeConfig) []error {
	var errs []error
	seen := make(map[string]struct{}, len(t.Workers)+len(t.Supervisors))
	check := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, &ValidationError{Field: path, Message: fmt.Sprintf("duplicate child id %q", id)})
		}
		seen[id] = struct{}{}
	}
	for _, w := range t.Workers {
		check(w.ID)
	}
	for i, nested := range t.Supervisors {
		if nested.Name == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("%s.supervisors[%d].name", path, i),
				Message: "nested supervisors need a name",
			})
			continue
		}
		check(nested.Name)
		errs = append(errs, validateTree(path+"."+nested.Name, nested)...)
	}
	return errs
}
