package store

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed Store. It backs STORE_BACKEND=memory dev runs
// and doubles as the test fake for every usecase test.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	subs        map[int]*memorySub
	nextSub     int
}

type memorySub struct {
	collection string
	filters    []Filter
	notifier   *notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		subs:        make(map[int]*memorySub),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Data: cloneMap(data)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	s.collections[collection][id] = resolveTimestamps(cloneMap(data))
	s.notifyLocked(collection)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range resolveTimestamps(cloneMap(updates)) {
		existing[k] = v
	}
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, filters), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := &memorySub{collection: collection, filters: filters, notifier: newNotifier(fn)}
	s.subs[id] = sub
	// Initial snapshot, delivered through the same ordered queue.
	sub.notifier.push(s.queryLocked(collection, filters))
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			sub.notifier.stop()
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}, nil
}

func (s *MemoryStore) queryLocked(collection string, filters []Filter) []Document {
	var docs []Document
	for id, data := range s.collections[collection] {
		if matches(data, filters) {
			docs = append(docs, Document{ID: id, Data: cloneMap(data)})
		}
	}
	return docs
}

func (s *MemoryStore) notifyLocked(collection string) {
	for _, sub := range s.subs {
		if sub.collection == collection {
			sub.notifier.push(s.queryLocked(sub.collection, sub.filters))
		}
	}
}

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case "==":
			if !reflect.DeepEqual(data[f.Field], f.Value) {
				return false
			}
		case "array-contains":
			if !sliceContains(data[f.Field], f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sliceContains(field, value interface{}) bool {
	rv := reflect.ValueOf(field)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

func resolveTimestamps(data map[string]interface{}) map[string]interface{} {
	for k, v := range data {
		switch v.(type) {
		case serverTimestamp:
			data[k] = time.Now()
		}
	}
	return data
}

func cloneMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
