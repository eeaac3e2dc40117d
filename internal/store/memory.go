package store

import (
	"maps"
	"sync"
)

// Memory is an in-process DocumentStore. All state is lost on restart;
// it exists so the rest of the application can be exercised without the
// external database.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	logs        map[string][]Document
	watchers    map[string]map[int]chan Document
	nextWatcher int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Document),
		logs:        make(map[string][]Document),
		watchers:    make(map[string]map[int]chan Document),
	}
}

func watchKey(collection, key string) string {
	return collection + "/" + key
}

func (m *Memory) Get(collection, key string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(doc), nil
}

func (m *Memory) Put(collection, key string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		m.collections[collection] = coll
	}
	coll[key] = maps.Clone(doc)
	m.notifyLocked(collection, key, coll[key])
	return nil
}

func (m *Memory) Update(collection, key string, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][key]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.notifyLocked(collection, key, doc)
	return nil
}

func (m *Memory) Append(collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[collection] = append(m.logs[collection], maps.Clone(doc))
	return nil
}

func (m *Memory) Recent(collection string, n int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[collection]
	if n > len(log) {
		n = len(log)
	}
	out := make([]Document, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, maps.Clone(log[i]))
	}
	return out, nil
}

func (m *Memory) Watch(collection, key string) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	wk := watchKey(collection, key)
	if m.watchers[wk] == nil {
		m.watchers[wk] = make(map[int]chan Document)
	}
	id := m.nextWatcher
	m.nextWatcher++

	// Buffer of one with latest-wins delivery: a slow subscriber may
	// miss intermediate revisions but always observes the newest.
	ch := make(chan Document, 1)
	m.watchers[wk][id] = ch

	if doc, ok := m.collections[collection][key]; ok {
		ch <- maps.Clone(doc)
	}

	return &Subscription{
		C: ch,
		cancel: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.watchers[wk][id]; !ok {
				return
			}
			delete(m.watchers[wk], id)
			close(ch)
		},
	}
}

// notifyLocked pushes the current document to every watcher of the key.
// Callers hold m.mu, so cancel cannot race a send here.
func (m *Memory) notifyLocked(collection, key string, doc Document) {
	for _, ch := range m.watchers[watchKey(collection, key)] {
		select {
		case ch <- maps.Clone(doc):
		default:
			// Replace the stale pending revision with the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- maps.Clone(doc):
			default:
			}
		}
	}
}
