// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replica

import "time"

// Clock abstracts wall-clock access so replicatest can drive the
// Reactor's phase transitions deterministically instead of waiting on
// real time.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the single reset-capable deadline source §5 requires: never
// more than one pending deadline, replaced (not stacked) on each
// transition.
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// systemClock is the real-time Clock used outside of tests.
type systemClock struct{}

// SystemClock is the production Clock backed by time.Timer.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTimer(d time.Duration) Timer {
	t := time.NewTimer(d)
	return &systemTimer{t: t}
}

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) C() <-chan time.Time { return s.t.C }

func (s *systemTimer) Reset(d time.Duration) {
	if !s.t.Stop() {
		select {
		case <-s.t.C:
		default:
		}
	}
	s.t.Reset(d)
}

func (s *systemTimer) Stop() { s.t.Stop() }
