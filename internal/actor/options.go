// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import "time"

const (
	// DefaultMailboxSize is the capacity of a bounded mailbox.
	DefaultMailboxSize = 1024

	// DefaultCallTimeout bounds Call when the context carries no deadline.
	DefaultCallTimeout = 5 * time.Second

	// DefaultInitTimeout bounds Init during Spawn.
	DefaultInitTimeout = 30 * time.Second
)

// Options configures a spawned actor.
type Options struct {
	Name        string
	MailboxSize int
	Unbounded   bool
	CallTimeout time.Duration
	InitTimeout time.Duration
}

// DefaultOptions returns the options used when Spawn gets none.
func DefaultOptions() Options {
	return Options{
		Name:        "actor",
		MailboxSize: DefaultMailboxSize,
		CallTimeout: DefaultCallTimeout,
		InitTimeout: DefaultInitTimeout,
	}
}

// Option mutates Options.
type Option func(*Options)

// WithName sets the actor name used in logs and metrics.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithMailboxSize sets the bounded mailbox capacity.
func WithMailboxSize(size int) Option {
	return func(o *Options) { o.MailboxSize = size }
}

// WithUnboundedMailbox switches to a mailbox that never applies backpressure.
func WithUnboundedMailbox() Option {
	return func(o *Options) { o.Unbounded = true }
}

// WithCallTimeout sets the default call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Options) { o.CallTimeout = d }
}

// WithInitTimeout sets how long Spawn waits for Init.
func WithInitTimeout(d time.Duration) Option {
	return func(o *Options) { o.InitTimeout = d }
}

// WithOptions replaces all options at once, typically from configuration.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		name := o.Name
		*o = opts
		if o.Name == "" {
			o.Name = name
		}
	}
}

func applyOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.MailboxSize <= 0 {
		o.MailboxSize = DefaultMailboxSize
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = DefaultInitTimeout
	}
	return o
}
