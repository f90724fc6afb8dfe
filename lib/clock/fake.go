// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when Advance is called. It is safe
// for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	pending []*alarm
}

// alarm is an armed After deadline.
type alarm struct {
	due     time.Time
	channel chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After arms a one-shot alarm.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.arm(&alarm{due: c.now.Add(d), channel: channel})
	return channel
}

// arm registers a. Caller holds c.mu.
func (c *FakeClock) arm(a *alarm) {
	c.pending = append(c.pending, a)
	c.changed.Broadcast()
}

// Advance moves time forward by d and fires every alarm that comes due,
// earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for {
		index := -1
		for i, a := range c.pending {
			if a.due.After(c.now) {
				continue
			}
			if index < 0 || a.due.Before(c.pending[index].due) {
				index = i
			}
		}
		if index < 0 {
			return
		}
		c.pending[index].channel <- c.pending[index].due
		c.pending = slices.Delete(c.pending, index, index+1)
		c.changed.Broadcast()
	}
}

// WaitForTimers blocks until at least n alarms are armed, so a test can
// Advance only after the code under test has started waiting.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// Pending returns the number of armed alarms.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
