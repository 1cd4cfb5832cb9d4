package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Set(ctx, "tasks", "t1", map[string]interface{}{
		"title":  "Mow the lawn",
		"status": "open",
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", doc.ID)
	assert.Equal(t, "Mow the lawn", GetString(doc.Data, "title"))

	_, err = s.Get(ctx, "tasks", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tasks", "t1", map[string]interface{}{
		"title":  "Mow the lawn",
		"status": "open",
	}))
	require.NoError(t, s.Update(ctx, "tasks", "t1", map[string]interface{}{
		"status": "matched",
	}))

	doc, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "matched", GetString(doc.Data, "status"))
	assert.Equal(t, "Mow the lawn", GetString(doc.Data, "title"), "unspecified fields stay untouched")

	assert.ErrorIs(t, s.Update(ctx, "tasks", "missing", map[string]interface{}{"status": "open"}), ErrNotFound)
}

func TestMemoryStoreServerTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	before := time.Now()
	id, err := s.Add(ctx, "messages", map[string]interface{}{
		"content":   "hello",
		"timestamp": ServerTimestamp,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "messages", id)
	require.NoError(t, err)
	ts := GetTime(doc.Data, "timestamp")
	assert.False(t, ts.Before(before))
	assert.False(t, ts.After(time.Now()))
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "chats", "c1", map[string]interface{}{
		"taskId":       "t1",
		"participants": []interface{}{"alice", "bob"},
	}))
	require.NoError(t, s.Set(ctx, "chats", "c2", map[string]interface{}{
		"taskId":       "t1",
		"participants": []interface{}{"alice", "carol"},
	}))
	require.NoError(t, s.Set(ctx, "chats", "c3", map[string]interface{}{
		"taskId":       "t2",
		"participants": []interface{}{"alice", "bob"},
	}))

	docs, err := s.Query(ctx, "chats", Eq("taskId", "t1"), ArrayContains("participants", "bob"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c1", docs[0].ID)

	docs, err = s.Query(ctx, "chats", ArrayContains("participants", "alice"))
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = s.Query(ctx, "chats", Eq("taskId", "t3"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var mu sync.Mutex
	var snapshots [][]Document
	unsubscribe, err := s.Subscribe(ctx, "comments", []Filter{Eq("taskId", "t1")}, func(docs []Document) {
		mu.Lock()
		snapshots = append(snapshots, docs)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	// Initial snapshot of the empty collection.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, snapshots[0])

	_, err = s.Add(ctx, "comments", map[string]interface{}{"taskId": "t1", "content": "first"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "comments", map[string]interface{}{"taskId": "t2", "content": "other task"})
	require.NoError(t, err)

	// Every change to the collection re-delivers the filtered result set.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	last := snapshots[len(snapshots)-1]
	mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, "first", GetString(last[0].Data, "content"))
}

func TestMemoryStoreUnsubscribe(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	unsubscribe, err := s.Subscribe(ctx, "comments", nil, func([]Document) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)

	unsubscribe()

	_, err = s.Add(ctx, "comments", map[string]interface{}{"content": "after"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
