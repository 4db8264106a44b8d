// Package cell provides a shared value container with change notification.
// Writers replace the whole value; readers only ever see committed values.
package cell

import (
	"sync"
)

// Change describes one committed replacement. Old and New are committed
// snapshots shared by every subscriber and must be treated as read-only.
type Change[T any] struct {
	Old      T
	New      T
	Revision uint64
}

type subscriber[T any] struct {
	id int
	fn func(Change[T])
}

// Cell holds a value of type T. clone must return a deep copy; it is used to
// hand out values that callers are free to mutate.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	rev    uint64
	clone  func(T) T
	subs   []subscriber[T]
	nextID int
	closed bool
}

func New[T any](initial T, clone func(T) T) *Cell[T] {
	return &Cell[T]{
		value: clone(initial),
		clone: clone,
	}
}

// Get returns a private copy of the committed value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value)
}

// View calls fn with the committed value and its revision without copying
// the value. fn must not retain or mutate it.
func (c *Cell[T]) View(fn func(v T, revision uint64)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.value, c.rev)
}

// Snapshot returns a private copy of the committed value together with the
// revision that committed it.
func (c *Cell[T]) Snapshot() (T, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value), c.rev
}

// Revision returns the number of commits so far.
func (c *Cell[T]) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rev
}

// Set replaces the value and returns the new revision.
func (c *Cell[T]) Set(v T) uint64 {
	c.mu.Lock()
	change, subs := c.commit(c.clone(v))
	c.mu.Unlock()

	notify(subs, change)
	return change.Revision
}

// Update clones the committed value, lets fn mutate the clone and commits
// it. If fn returns an error nothing is committed.
func (c *Cell[T]) Update(fn func(*T) error) (uint64, error) {
	c.mu.Lock()
	next := c.clone(c.value)
	if err := fn(&next); err != nil {
		rev := c.rev
		c.mu.Unlock()
		return rev, err
	}
	change, subs := c.commit(next)
	c.mu.Unlock()

	notify(subs, change)
	return change.Revision, nil
}

// commit must be called with mu held.
func (c *Cell[T]) commit(next T) (Change[T], []subscriber[T]) {
	old := c.value
	c.value = next
	c.rev++
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	return Change[T]{Old: old, New: next, Revision: c.rev}, subs
}

func notify[T any](subs []subscriber[T], change Change[T]) {
	for _, s := range subs {
		s.fn(change)
	}
}

// Subscribe registers fn to run after every commit, in subscription order,
// outside the cell's lock. The returned func cancels the subscription.
func (c *Cell[T]) Subscribe(fn func(Change[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

func (c *Cell[T]) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (c *Cell[T]) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Close drops every subscriber. Later Subscribe calls are no-ops; the value
// stays readable.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	c.subs = nil
	c.closed = true
	c.mu.Unlock()
}
