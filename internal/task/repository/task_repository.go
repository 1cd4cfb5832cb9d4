package repository

import (
	"context"
	"errors"

	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// TaskRepository defines data access for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (string, error)

	// FindByID returns nil without error when the task does not exist.
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// FindOpen lists open tasks, optionally restricted to a category.
	FindOpen(ctx context.Context, category string) ([]*domain.Task, error)

	FindByCreator(ctx context.Context, creatorID string) ([]*domain.Task, error)

	// UpdateFields merges the given fields into the task document.
	UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error
}

type storeTaskRepository struct {
	store store.Store
}

func NewTaskRepository(s store.Store) TaskRepository {
	return &storeTaskRepository{store: s}
}

func (r *storeTaskRepository) Create(ctx context.Context, task *domain.Task) (string, error) {
	return r.store.Add(ctx, store.CollectionTasks, map[string]interface{}{
		"title":          task.Title,
		"description":    task.Description,
		"category":       task.Category,
		"status":         string(task.Status),
		"creatorId":      task.CreatorID,
		"creatorName":    task.CreatorName,
		"locationShared": false,
		"location": map[string]interface{}{
			"address": task.Location.Address,
			"coordinates": map[string]interface{}{
				"lat": task.Location.Coordinates.Lat,
				"lng": task.Location.Coordinates.Lng,
			},
		},
		"createdAt": store.ServerTimestamp,
	})
}

func (r *storeTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	doc, err := r.store.Get(ctx, store.CollectionTasks, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return taskFromDoc(doc), nil
}

func (r *storeTaskRepository) FindOpen(ctx context.Context, category string) ([]*domain.Task, error) {
	filters := []store.Filter{store.Eq("status", string(domain.TaskStatusOpen))}
	if category != "" {
		filters = append(filters, store.Eq("category", category))
	}
	docs, err := r.store.Query(ctx, store.CollectionTasks, filters...)
	if err != nil {
		return nil, err
	}
	return tasksFromDocs(docs), nil
}

func (r *storeTaskRepository) FindByCreator(ctx context.Context, creatorID string) ([]*domain.Task, error) {
	docs, err := r.store.Query(ctx, store.CollectionTasks, store.Eq("creatorId", creatorID))
	if err != nil {
		return nil, err
	}
	return tasksFromDocs(docs), nil
}

func (r *storeTaskRepository) UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.store.Update(ctx, store.CollectionTasks, id, updates)
}

func tasksFromDocs(docs []store.Document) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, taskFromDoc(&docs[i]))
	}
	return tasks
}

func taskFromDoc(doc *store.Document) *domain.Task {
	task := &domain.Task{
		ID:             doc.ID,
		Title:          store.GetString(doc.Data, "title"),
		Description:    store.GetString(doc.Data, "description"),
		Category:       store.GetString(doc.Data, "category"),
		Status:         domain.TaskStatus(store.GetString(doc.Data, "status")),
		CreatorID:      store.GetString(doc.Data, "creatorId"),
		CreatorName:    store.GetString(doc.Data, "creatorName"),
		AssignedUserID: store.GetString(doc.Data, "assignedUserId"),
		LocationShared: store.GetBool(doc.Data, "locationShared"),
		CreatedAt:      store.GetTime(doc.Data, "createdAt"),
	}
	if loc := store.GetMap(doc.Data, "location"); loc != nil {
		task.Location.Address = store.GetString(loc, "address")
		if coords := store.GetMap(loc, "coordinates"); coords != nil {
			task.Location.Coordinates.Lat = store.GetFloat(coords, "lat")
			task.Location.Coordinates.Lng = store.GetFloat(coords, "lng")
		}
	}
	if completed := store.GetTime(doc.Data, "completedAt"); !completed.IsZero() {
		task.CompletedAt = &completed
	}
	return task
}
