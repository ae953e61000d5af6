// Package coretest holds in-memory stand-ins for the core interfaces.
package coretest

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
)

// Clock is a manual core.Clock. Callbacks run synchronously inside Advance,
// on the caller's goroutine, in deadline order.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	c      *Clock
	id     int
	at     time.Time
	period time.Duration
	f      func()
}

func NewClock() *Clock {
	return &Clock{
		now:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		timers: make(map[int]*fakeTimer),
	}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) core.Timer {
	return c.add(d, 0, f)
}

func (c *Clock) Every(d time.Duration, f func()) core.Timer {
	return c.add(d, d, f)
}

func (c *Clock) add(d, period time.Duration, f func()) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, id: c.seq, at: c.now.Add(d), period: period, f: f}
	c.timers[t.id] = t
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if _, ok := t.c.timers[t.id]; !ok {
		return false
	}
	delete(t.c.timers, t.id)
	return true
}

// Pending is the number of scheduled timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves time forward by d, firing every callback that falls due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			delete(c.timers, next.id)
		}
		f := next.f
		c.mu.Unlock()
		f()
	}
}

func (c *Clock) nextDue(target time.Time) *fakeTimer {
	due := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}
