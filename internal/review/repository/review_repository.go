package repository

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/review/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// ReviewRepository defines data access for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (string, error)

	// FindByTaskAndReviewer backs the duplicate-review guard.
	FindByTaskAndReviewer(ctx context.Context, taskID, reviewerID string) ([]*domain.Review, error)

	// FindByReviewee returns every review of a user; the rating
	// recomputation reads the full set on purpose.
	FindByReviewee(ctx context.Context, userID string) ([]*domain.Review, error)
}

type storeReviewRepository struct {
	store store.Store
}

func NewReviewRepository(s store.Store) ReviewRepository {
	return &storeReviewRepository{store: s}
}

func (r *storeReviewRepository) Create(ctx context.Context, review *domain.Review) (string, error) {
	return r.store.Add(ctx, store.CollectionReviews, map[string]interface{}{
		"taskId":     review.TaskID,
		"reviewerId": review.ReviewerID,
		"userId":     review.UserID,
		"rating":     review.Rating,
		"content":    review.Content,
		"createdAt":  store.ServerTimestamp,
	})
}

func (r *storeReviewRepository) FindByTaskAndReviewer(ctx context.Context, taskID, reviewerID string) ([]*domain.Review, error) {
	docs, err := r.store.Query(ctx, store.CollectionReviews,
		store.Eq("taskId", taskID),
		store.Eq("reviewerId", reviewerID),
	)
	if err != nil {
		return nil, err
	}
	return reviewsFromDocs(docs), nil
}

func (r *storeReviewRepository) FindByReviewee(ctx context.Context, userID string) ([]*domain.Review, error) {
	docs, err := r.store.Query(ctx, store.CollectionReviews, store.Eq("userId", userID))
	if err != nil {
		return nil, err
	}
	return reviewsFromDocs(docs), nil
}

func reviewsFromDocs(docs []store.Document) []*domain.Review {
	reviews := make([]*domain.Review, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		reviews = append(reviews, &domain.Review{
			ID:         doc.ID,
			TaskID:     store.GetString(doc.Data, "taskId"),
			ReviewerID: store.GetString(doc.Data, "reviewerId"),
			UserID:     store.GetString(doc.Data, "userId"),
			Rating:     store.GetInt(doc.Data, "rating"),
			Content:    store.GetString(doc.Data, "content"),
			CreatedAt:  store.GetTime(doc.Data, "createdAt"),
		})
	}
	return reviews
}
