// Package storage holds the widget's in-memory item collections.
package storage

import (
	"errors"
	"slices"
	"sync"

	"github.com/dharsanguruparan/dropzone/internal/model"
)

var (
	// ErrNotFound is returned when no item carries the requested id.
	ErrNotFound = errors.New("file not found")
)

// List is an ordered collection of items keyed by id. Every mutation replaces
// the backing slice with one derived from the latest state, so snapshots
// handed out earlier are never modified.
type List struct {
	mu    sync.RWMutex
	items []model.QueueItem
}

// NewList constructs an empty List.
func NewList() *List {
	return &List{}
}

// Append adds items at the end, preserving their order.
func (l *List) Append(items ...model.QueueItem) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]model.QueueItem, 0, len(l.items)+len(items))
	next = append(next, l.items...)
	next = append(next, items...)
	l.items = next
}

// Update applies fn to a copy of the item with the given id and stores the
// result in place. It reports false when the id is unknown, in which case fn
// is not called.
func (l *List) Update(id string, fn func(*model.QueueItem)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return false
	}

	next := slices.Clone(l.items)
	fn(&next[i])
	next[i].ID = id
	l.items = next
	return true
}

// Remove deletes the item with the given id and returns it.
func (l *List) Remove(id string) (model.QueueItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return model.QueueItem{}, ErrNotFound
	}

	removed := l.items[i]
	next := make([]model.QueueItem, 0, len(l.items)-1)
	next = append(next, l.items[:i]...)
	next = append(next, l.items[i+1:]...)
	l.items = next
	return removed, nil
}

// Get returns a copy of the item with the given id.
func (l *List) Get(id string) (model.QueueItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.index(id)
	if i < 0 {
		return model.QueueItem{}, ErrNotFound
	}
	return l.items[i], nil
}

// Snapshot returns the items in order. The slice is a copy the caller owns.
func (l *List) Snapshot() []model.QueueItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.items)
}

// Len returns the number of items.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}

func (l *List) index(id string) int {
	return slices.IndexFunc(l.items, func(it model.QueueItem) bool {
		return it.ID == id
	})
}
