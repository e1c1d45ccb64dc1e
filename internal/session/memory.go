package session

import (
	"sync"
)

// Memory is an in-process store shared by several views. A write through
// one view notifies the subscribers of every other view, the way browser
// storage events reach every tab except the writer.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	views  []*MemoryView
	err    error
}

// NewMemory creates an empty shared store
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// View opens a new execution context on the store
func (m *Memory) View() *MemoryView {
	v := &MemoryView{m: m, subs: make(map[uint64]func())}
	m.mu.Lock()
	m.views = append(m.views, v)
	m.mu.Unlock()
	return v
}

// FailWith makes every subsequent operation return err. Pass nil to heal.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Broadcast fires every subscriber of every view without changing data
func (m *Memory) Broadcast() {
	m.notify(nil)
}

func (m *Memory) notify(from *MemoryView) {
	m.mu.Lock()
	views := make([]*MemoryView, 0, len(m.views))
	for _, v := range m.views {
		if v != from {
			views = append(views, v)
		}
	}
	m.mu.Unlock()

	for _, v := range views {
		v.fire()
	}
}

// MemoryView is one context's handle on a Memory store
type MemoryView struct {
	m *Memory

	mu   sync.Mutex
	subs map[uint64]func()
	next uint64
}

func (v *MemoryView) Get(key string) (string, bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if v.m.err != nil {
		return "", false, v.m.err
	}
	value, ok := v.m.values[key]
	return value, ok, nil
}

func (v *MemoryView) Set(key, value string) error {
	v.m.mu.Lock()
	if v.m.err != nil {
		err := v.m.err
		v.m.mu.Unlock()
		return err
	}
	v.m.values[key] = value
	v.m.mu.Unlock()

	v.m.notify(v)
	return nil
}

func (v *MemoryView) Remove(key string) error {
	v.m.mu.Lock()
	if v.m.err != nil {
		err := v.m.err
		v.m.mu.Unlock()
		return err
	}
	delete(v.m.values, key)
	v.m.mu.Unlock()

	v.m.notify(v)
	return nil
}

func (v *MemoryView) Subscribe(fn func()) (func(), error) {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}, nil
}

func (v *MemoryView) fire() {
	v.mu.Lock()
	fns := make([]func(), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
