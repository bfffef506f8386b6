package cloudsync_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"orbit/internal/cloudsync"
	"orbit/internal/library"
)

// memoryStore is an in-process DocumentStore with synchronous notifications.
type memoryStore struct {
	mu          sync.Mutex
	docs        map[string]cloudsync.Document
	sets        int
	setErr      error
	getErr      error
	subscribers map[string][]chan cloudsync.Document
	clock       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		docs:        make(map[string]cloudsync.Document),
		subscribers: make(map[string][]chan cloudsync.Document),
	}
}

func (m *memoryStore) Get(_ context.Context, path string) (*cloudsync.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *memoryStore) Set(_ context.Context, path string, doc cloudsync.Document) error {
	m.mu.Lock()
	if m.setErr != nil {
		m.mu.Unlock()
		return m.setErr
	}
	m.clock++
	doc.UpdatedAt = time.Date(2025, 1, 1, 0, 0, m.clock, 0, time.UTC)
	m.docs[path] = doc
	m.sets++
	subs := append([]chan cloudsync.Document(nil), m.subscribers[path]...)
	m.mu.Unlock()
	for _, ch := range subs {
		ch <- doc
	}
	return nil
}

func (m *memoryStore) Subscribe(ctx context.Context, path string, fn func(cloudsync.Document)) error {
	ch := make(chan cloudsync.Document, 16)
	m.mu.Lock()
	m.subscribers[path] = append(m.subscribers[path], ch)
	m.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc := <-ch:
			fn(doc)
		}
	}
}

func (m *memoryStore) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func (m *memoryStore) doc(path string) (cloudsync.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	return doc, ok
}

func (m *memoryStore) put(path string, games []library.Game, deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = cloudsync.Document{Games: games, DeviceID: deviceID}
}

func (m *memoryStore) failSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

var errOffline = errors.New("offline")
