package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

// MemoryStore keeps connections in process memory. It is used by the demo server and by tests;
// everything is lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	connections map[string]model.Connection
	// order holds the ids in insertion order, which is the listing order.
	order []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{connections: map[string]model.Connection{}}
}

// ListByOwner implements Store.
func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []model.Connection{}
	for _, id := range s.order {
		c := s.connections[id]
		if c.OwnerID == ownerID {
			result = append(result, clone(c))
		}
	}
	return result, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, ownerID string, c model.Connection) (model.Connection, error) {
	c = clone(c)
	c.ID = uuid.NewString()
	c.OwnerID = ownerID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.ID] = c
	s.order = append(s.order, c.ID)
	return clone(c), nil
}

// ReplaceFields implements Store.
func (s *MemoryStore) ReplaceFields(_ context.Context, ownerID string, patch model.ConnectionPatch) (UpdateResult, error) {
	if !patch.HasID() {
		return UpdateResult{}, ErrNoID
	}
	if len(patch.Fields()) == 0 {
		return UpdateResult{}, ErrNoFields
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[*patch.ID]
	if !ok || c.OwnerID != ownerID {
		return UpdateResult{}, nil
	}
	before := clone(c)
	patch.Apply(&c)
	c = clone(c)
	if reflect.DeepEqual(before, c) {
		return UpdateResult{MatchedCount: 1}, nil
	}
	s.connections[c.ID] = c
	return UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// DeleteByIDAndOwner implements Store.
func (s *MemoryStore) DeleteByIDAndOwner(_ context.Context, ownerID string, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	if !ok || c.OwnerID != ownerID {
		return 0, nil
	}
	delete(s.connections, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// clone copies the lists so that callers never share backing arrays with the store.
func clone(c model.Connection) model.Connection {
	c.CTOs = append(model.StringList{}, c.CTOs...)
	c.FutureTalkingPoints = append(model.StringList{}, c.FutureTalkingPoints...)
	return c
}
