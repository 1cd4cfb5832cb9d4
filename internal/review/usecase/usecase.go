package usecase

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/review/domain"
)

// ReviewUsecase is the completion & review engine.
type ReviewUsecase interface {
	// CompleteTask marks the task completed and records the caller's
	// review of the counterparty, updating their aggregate rating.
	CompleteTask(ctx context.Context, taskID, reviewerID string, rating int, reviewText string) error

	// CreateReview records one review. Guarded against a second review by
	// the same reviewer for the same task; the reviewee's aggregate
	// rating is recomputed from the full review set afterwards.
	CreateReview(ctx context.Context, taskID, reviewerID, revieweeID string, rating int, content string) (*domain.Review, error)

	// ReviewsOf lists all reviews a user has received.
	ReviewsOf(ctx context.Context, userID string) ([]*domain.Review, error)
}
