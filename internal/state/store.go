// Package state owns the live document. The store is the only writer: every
// mutation funnels through Dispatch, which serializes requests FIFO, swaps in
// the new immutable document on success, and broadcasts the snapshot to
// subscribers. Readers always observe a complete document, never a
// half-applied mutation.
package state

import (
	"sync"

	"go.uber.org/zap"

	"intentd/internal/domain"
	"intentd/internal/tools"
)

const subscriberBuffer = 16

type Store struct {
	mu       sync.Mutex
	doc      *domain.Document
	registry *tools.Registry
	log      *zap.Logger

	subMu sync.RWMutex
	subs  map[int]chan *domain.Document
	nextSub int
	closed  bool
}

func New(registry *tools.Registry, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		doc:      domain.NewDocument(),
		registry: registry,
		log:      log,
		subs:     make(map[int]chan *domain.Document),
	}
}

// Registry exposes the dispatch table for channel layers that list tools.
func (s *Store) Registry() *tools.Registry {
	return s.registry
}

// Snapshot returns the current document. Published documents are immutable;
// callers must not modify the returned value.
func (s *Store) Snapshot() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Dispatch validates and applies one tool call. Calls are serialized in
// arrival order; a failed or panicking call leaves the published document
// untouched and the store serviceable.
func (s *Store) Dispatch(name string, args map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, result, err := s.registry.Apply(s.doc, name, args)
	if err != nil {
		s.log.Debug("tool rejected", zap.String("tool", name), zap.Error(err))
		return nil, err
	}
	if next == nil {
		// Read-only tool: nothing to publish.
		return result, nil
	}
	s.doc = next

	s.log.Info("tool applied", zap.String("tool", name))
	// Publishing before the lock is released keeps subscriber snapshots in
	// apply order.
	s.publish(next)
	return result, nil
}

// Subscribe registers a snapshot listener. Every successful mutation delivers
// the new document; slow subscribers drop snapshots rather than block the
// dispatch pipeline. The returned function unsubscribes.
func (s *Store) Subscribe() (<-chan *domain.Document, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan *domain.Document, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close drops all subscribers.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) publish(doc *domain.Document) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- doc:
		default:
			// Subscriber backed up; it will catch up on the next snapshot.
		}
	}
}
