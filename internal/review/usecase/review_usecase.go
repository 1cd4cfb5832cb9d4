package usecase

import (
	"context"
	"log"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	"github.com/dgibisch/doit2-sub002/internal/review/domain"
	"github.com/dgibisch/doit2-sub002/internal/review/repository"
	taskdomain "github.com/dgibisch/doit2-sub002/internal/task/domain"
	taskrepo "github.com/dgibisch/doit2-sub002/internal/task/repository"
	userrepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
)

// reviewUsecase implements ReviewUsecase.
type reviewUsecase struct {
	reviewRepo repository.ReviewRepository
	taskRepo   taskrepo.TaskRepository
	userRepo   userrepo.UserRepository
	events     notification.Publisher
}

func NewReviewUsecase(reviewRepo repository.ReviewRepository, taskRepo taskrepo.TaskRepository, userRepo userrepo.UserRepository, events notification.Publisher) ReviewUsecase {
	return &reviewUsecase{
		reviewRepo: reviewRepo,
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		events:     events,
	}
}

func (u *reviewUsecase) CompleteTask(ctx context.Context, taskID, reviewerID string, rating int, reviewText string) error {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return apperrors.Store(err, "failed to load task")
	}
	if task == nil {
		return apperrors.NotFound("task %s not found", taskID)
	}
	if task.Status == taskdomain.TaskStatusOpen {
		return apperrors.Precondition("task has no accepted application yet")
	}
	if reviewerID != task.CreatorID && reviewerID != task.AssignedUserID {
		return apperrors.Precondition("only the task's participants can complete it")
	}

	// The counterparty relative to the caller is the reviewee.
	revieweeID := task.AssignedUserID
	if reviewerID == task.AssignedUserID {
		revieweeID = task.CreatorID
	}

	// Status only ever advances; the second participant completing the
	// task skips straight to their review.
	if task.Status == taskdomain.TaskStatusMatched {
		if err := u.taskRepo.UpdateFields(ctx, taskID, map[string]interface{}{
			"status":      string(taskdomain.TaskStatusCompleted),
			"completedAt": time.Now(),
		}); err != nil {
			return apperrors.Store(err, "failed to mark task completed")
		}
	}

	if _, err := u.CreateReview(ctx, taskID, reviewerID, revieweeID, rating, reviewText); err != nil {
		return err
	}

	u.events.Publish(notification.Event{
		Type:   notification.EventTaskCompleted,
		UserID: revieweeID,
		Data: map[string]interface{}{
			"taskId":    taskID,
			"taskTitle": task.Title,
		},
	})
	return nil
}

func (u *reviewUsecase) CreateReview(ctx context.Context, taskID, reviewerID, revieweeID string, rating int, content string) (*domain.Review, error) {
	// Guard before any write: at most one review per (task, reviewer).
	existing, err := u.reviewRepo.FindByTaskAndReviewer(ctx, taskID, reviewerID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to check for existing review")
	}
	if len(existing) > 0 {
		return nil, apperrors.Precondition("duplicate review")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.Precondition("rating must be between 1 and 5")
	}

	review := &domain.Review{
		TaskID:     taskID,
		ReviewerID: reviewerID,
		UserID:     revieweeID,
		Rating:     rating,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	id, err := u.reviewRepo.Create(ctx, review)
	if err != nil {
		return nil, apperrors.Store(err, "failed to create review")
	}
	review.ID = id

	// The review row is the source of truth; the aggregate is a derived
	// cache. A failed recomputation is logged and self-heals on the next
	// review write.
	if err := u.recomputeRating(ctx, revieweeID); err != nil {
		log.Printf("[Reviews] failed to recompute rating for %s: %v", revieweeID, err)
	}

	u.events.Publish(notification.Event{
		Type:   notification.EventReviewReceived,
		UserID: revieweeID,
		Data:   map[string]interface{}{"taskId": taskID},
	})
	return review, nil
}

func (u *reviewUsecase) ReviewsOf(ctx context.Context, userID string) ([]*domain.Review, error) {
	reviews, err := u.reviewRepo.FindByReviewee(ctx, userID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load reviews")
	}
	return reviews, nil
}

// recomputeRating re-derives mean and count from the full review set. The
// full scan keeps the aggregate correct under later edits or removals, at
// the cost of an O(n) read per new review.
func (u *reviewUsecase) recomputeRating(ctx context.Context, userID string) error {
	reviews, err := u.reviewRepo.FindByReviewee(ctx, userID)
	if err != nil {
		return err
	}

	rating := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, review := range reviews {
			sum += review.Rating
		}
		rating = float64(sum) / float64(len(reviews))
	}
	return u.userRepo.UpdateRating(ctx, userID, rating, len(reviews))
}
