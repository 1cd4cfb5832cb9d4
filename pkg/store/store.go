package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists under the given id.
// Repositories translate it into their own not-found handling.
var ErrNotFound = errors.New("document not found")

// Document is one record of a collection. Data holds the decoded fields;
// use the Get* helpers to read them, since the concrete value types differ
// between backends (e.g. timestamps decode as time.Time or RFC3339 strings).
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter restricts a query. Only equality and array-contains are supported,
// which is all the collaboration flows need.
type Filter struct {
	Field string
	Op    string // "==" or "array-contains"
	Value interface{}
}

// Eq matches documents whose field equals value.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// ArrayContains matches documents whose array field contains value.
func ArrayContains(field string, value interface{}) Filter {
	return Filter{Field: field, Op: "array-contains", Value: value}
}

type serverTimestamp struct{}

// ServerTimestamp is a sentinel value; the backend replaces it with its own
// commit-time timestamp when the write is applied.
var ServerTimestamp = serverTimestamp{}

// Unsubscribe stops a subscription. Consumers must call it on teardown;
// a leaked subscription keeps recomputing snapshots, it does not crash.
type Unsubscribe func()

// Store is the document store consumed by all repositories.
//
// Subscribe registers fn for a filtered collection; fn receives the full
// current result set once on registration and again after every change that
// touches the collection, in commit order for that subscription. Mutating
// calls return an error when the backend is unavailable; callers must never
// treat such an error as success.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Update merges the given fields into the document; unspecified fields
	// are left untouched.
	Update(ctx context.Context, collection, id string, updates map[string]interface{}) error
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Subscribe(ctx context.Context, collection string, filters []Filter, fn func([]Document)) (Unsubscribe, error)
}

// Collection names used across the backend.
const (
	CollectionUsers        = "users"
	CollectionTasks        = "tasks"
	CollectionApplications = "applications"
	CollectionChats        = "chats"
	CollectionMessages     = "messages"
	CollectionReviews      = "reviews"
	CollectionComments     = "comments"
)
