package core

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop reports whether the call prevented a future run.
	Stop() bool
}

// Clock schedules callbacks. Every timer-driven piece of the client takes
// one so tests can drive time by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	// Every runs f every d until the returned timer is stopped.
	Every(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Every(d time.Duration, f func()) Timer {
	t := &ticker{t: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.t.C:
				f()
			}
		}
	}()
	return t
}

type ticker struct {
	t    *time.Ticker
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.t.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
