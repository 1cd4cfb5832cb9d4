package repository

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// CommentRepository defines data access for task comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (string, error)
	FindByTask(ctx context.Context, taskID string) ([]domain.Comment, error)

	// SubscribeByTask streams the full comment set of a task on every change.
	SubscribeByTask(ctx context.Context, taskID string, fn func([]domain.Comment)) (store.Unsubscribe, error)
}

type storeCommentRepository struct {
	store store.Store
}

func NewCommentRepository(s store.Store) CommentRepository {
	return &storeCommentRepository{store: s}
}

func (r *storeCommentRepository) Create(ctx context.Context, comment *domain.Comment) (string, error) {
	data := map[string]interface{}{
		"taskId":     comment.TaskID,
		"authorId":   comment.AuthorID,
		"authorName": comment.AuthorName,
		"content":    comment.Content,
		"createdAt":  store.ServerTimestamp,
	}
	if comment.ParentID != "" {
		data["parentId"] = comment.ParentID
	}
	return r.store.Add(ctx, store.CollectionComments, data)
}

func (r *storeCommentRepository) FindByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	docs, err := r.store.Query(ctx, store.CollectionComments, store.Eq("taskId", taskID))
	if err != nil {
		return nil, err
	}
	return commentsFromDocs(docs), nil
}

func (r *storeCommentRepository) SubscribeByTask(ctx context.Context, taskID string, fn func([]domain.Comment)) (store.Unsubscribe, error) {
	return r.store.Subscribe(ctx, store.CollectionComments,
		[]store.Filter{store.Eq("taskId", taskID)},
		func(docs []store.Document) {
			fn(commentsFromDocs(docs))
		})
}

func commentsFromDocs(docs []store.Document) []domain.Comment {
	comments := make([]domain.Comment, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		comments = append(comments, domain.Comment{
			ID:         doc.ID,
			TaskID:     store.GetString(doc.Data, "taskId"),
			AuthorID:   store.GetString(doc.Data, "authorId"),
			AuthorName: store.GetString(doc.Data, "authorName"),
			ParentID:   store.GetString(doc.Data, "parentId"),
			Content:    store.GetString(doc.Data, "content"),
			CreatedAt:  store.GetTime(doc.Data, "createdAt"),
		})
	}
	return comments
}
