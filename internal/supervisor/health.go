// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

type probe struct {
	c   *child
	ref actor.Ref
	err error
}

// checkHealth probes running children concurrently, each bounded by the
// health check timeout. A child reaching the failure threshold is queued
// for a restart and its counter starts over.
func (s *Supervisor) checkHealth(target string) error {
	ids := s.order
	if target != "" {
		ids = []string{target}
	}

	var probes []*probe
	for _, id := range ids {
		c := s.children[id]
		if c == nil || c.status != StatusRunning || c.ref == nil {
			continue
		}
		probes = append(probes, &probe{c: c, ref: c.ref})
	}
	if len(probes) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func(p *probe) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(actor.WithSender(context.Background(), s.id), s.cfg.HealthCheckTimeout)
			defer cancel()
			p.err = p.ref.Probe(ctx)
		}(p)
	}
	wg.Wait()

	var errs []error
	for _, p := range probes {
		id := p.c.spec.ID
		if p.err == nil {
			p.c.healthFailures = 0
			continue
		}

		p.c.healthFailures++
		errs = append(errs, fmt.Errorf("%s: %w", id, p.err))
		metrics.RecordHealthCheckFailure(s.cfg.Name, id)
		s.emit(Event{
			Kind:         EventHealthCheckFailed,
			ChildID:      id,
			ProcessID:    p.ref.ID(),
			FailureCount: p.c.healthFailures,
			Error:        p.err.Error(),
		})
		s.logger.Warn().Err(p.err).
			Str("child", id).
			Uint32("failures", p.c.healthFailures).
			Uint32("threshold", s.cfg.HealthCheckThreshold).
			Msg("Child health check failed")

		if p.c.healthFailures >= s.cfg.HealthCheckThreshold {
			p.c.healthFailures = 0
			s.failures = append(s.failures, failure{id: id, reason: "health check failed", health: true})
		}
	}
	return errors.Join(errs...)
}
