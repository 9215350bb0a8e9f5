package app

import "sync"

// Dispatcher runs the network half of a user action.
type Dispatcher interface {
	// Go runs f, possibly on another goroutine. f may call Go again.
	Go(f func())
	// Wait blocks until every f passed to Go has returned.
	Wait()
}

// AsyncDispatcher runs each call on its own goroutine with no ordering or
// mutual exclusion between calls.
type AsyncDispatcher struct {
	wg sync.WaitGroup
}

func (d *AsyncDispatcher) Go(f func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		f()
	}()
}

func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// InlineDispatcher runs each call to completion before Go returns.
type InlineDispatcher struct{}

func (InlineDispatcher) Go(f func()) { f() }

func (InlineDispatcher) Wait() {}
