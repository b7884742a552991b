// Package channel provides the mailbox a worker uses to push interim per-row status text
// back to the owning goroutine.
package channel

import (
	"sync"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// StatusChannel maps StableIDs to update callbacks for the lifetime of one batch.
//
// Send may be called from any goroutine and never waits for the callback: it posts the delivery
// to the owner's executor. Callbacks are looked up when the delivery runs, so an update for a row
// whose registration was dropped (row deleted, batch released) is silently discarded.
type StatusChannel struct {
	exec loop.Executor

	mu        sync.Mutex
	callbacks map[model.StableID]func(string)
	released  bool
}

// NewStatusChannel creates a channel that delivers on exec.
func NewStatusChannel(exec loop.Executor) *StatusChannel {
	return &StatusChannel{
		exec:      exec,
		callbacks: make(map[model.StableID]func(string)),
	}
}

// Register binds callback to id, replacing any previous binding. It is ignored once the
// channel was released.
func (c *StatusChannel) Register(id model.StableID, callback func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.callbacks[id] = callback
}

// Unregister drops the binding for id.
func (c *StatusChannel) Unregister(id model.StableID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.callbacks, id)
}

// Send queues text for the callback registered under id.
func (c *StatusChannel) Send(id model.StableID, text string) {
	if c == nil {
		return
	}
	if !c.exec.Post(func() { c.deliver(id, text) }) {
		logger.Debugf("StatusChannel: executor closed, dropping update for row %s.", id)
	}
}

func (c *StatusChannel) deliver(id model.StableID, text string) {
	c.mu.Lock()
	cb, ok := c.callbacks[id]
	c.mu.Unlock()
	if !ok {
		logger.Debugf("StatusChannel: no receiver for row %s, update dropped.", id)
		return
	}
	cb(text)
}

// Reporter returns a function that sends to id. It is handed to per-item work.
func (c *StatusChannel) Reporter(id model.StableID) func(string) {
	return func(text string) { c.Send(id, text) }
}

// Clear drops every registration and marks the channel released. Updates still queued are discarded.
func (c *StatusChannel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = make(map[model.StableID]func(string))
	c.released = true
}

// Released reports whether Clear was called.
func (c *StatusChannel) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Len returns the number of registered callbacks.
func (c *StatusChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.callbacks)
}
