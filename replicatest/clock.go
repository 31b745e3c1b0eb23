// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package replicatest is the deterministic test harness for package
// replica: a manually-advanced Clock/Timer pair and an in-memory
// network wiring N reactors' inboxes/outboxes together, so scenario
// tests can drive phase transitions without real time passing.
// Grounded on the teacher's snowtest/consensustest fake-network style
// (see DESIGN.md).
package replicatest

import (
	"sync"
	"time"

	"github.com/luxfi/epochbft/replica"
)

// FakeClock is a manually-advanced replica.Clock: Now only moves when
// Advance is called, and Advance fires every timer whose deadline has
// passed.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

var _ replica.Clock = (*FakeClock)(nil)

// NewFakeClock returns a clock parked at an arbitrary fixed instant
// (never the zero time.Time, so tests can't confuse "unset" with "t0").
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTimer(d time.Duration) replica.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{owner: c, ch: make(chan time.Time, 1), deadline: c.now.Add(d)}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every timer whose
// deadline has now passed, in the order timers were created.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if t.dueBy(now) {
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fire()
	}
}

type fakeTimer struct {
	mu       sync.Mutex
	owner    *FakeClock
	ch       chan time.Time
	deadline time.Time
	fired    bool
	stopped  bool
}

var _ replica.Timer = (*fakeTimer)(nil)

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.ch:
	default:
	}
	t.fired = false
	t.stopped = false
	t.deadline = t.owner.Now().Add(d)
}

func (t *fakeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTimer) dueBy(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.fired && !t.stopped && !t.deadline.After(now)
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return
	}
	t.fired = true
	t.ch <- t.deadline
}
