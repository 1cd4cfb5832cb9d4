package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	"github.com/dgibisch/doit2-sub002/internal/review/repository"
	taskdomain "github.com/dgibisch/doit2-sub002/internal/task/domain"
	taskrepo "github.com/dgibisch/doit2-sub002/internal/task/repository"
	userrepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

type captureEvents struct {
	mu     sync.Mutex
	events []notification.Event
}

func (c *captureEvents) Publish(event notification.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// brokenRatingRepo fails every rating write; the review itself must still
// be recorded.
type brokenRatingRepo struct {
	userrepo.UserRepository
}

func (r *brokenRatingRepo) UpdateRating(ctx context.Context, id string, rating float64, count int) error {
	return errors.New("rating store down")
}

type fixture struct {
	reviewUc ReviewUsecase
	tasks    taskrepo.TaskRepository
	users    userrepo.UserRepository
}

func newFixture() *fixture {
	return newFixtureWith(nil)
}

func newFixtureWith(wrapUsers func(userrepo.UserRepository) userrepo.UserRepository) *fixture {
	s := store.NewMemoryStore()

	var users userrepo.UserRepository = userrepo.NewUserRepository(s)
	if wrapUsers != nil {
		users = wrapUsers(users)
	}
	tasks := taskrepo.NewTaskRepository(s)
	reviews := repository.NewReviewRepository(s)

	return &fixture{
		reviewUc: NewReviewUsecase(reviews, tasks, users, &captureEvents{}),
		tasks:    tasks,
		users:    users,
	}
}

// seedMatchedTask creates a matched task owned by "alice" with "bob"
// assigned.
func (f *fixture) seedMatchedTask(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	taskID, err := f.tasks.Create(ctx, &taskdomain.Task{
		Title:     "Mow the lawn",
		Status:    taskdomain.TaskStatusOpen,
		CreatorID: "alice",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.tasks.UpdateFields(ctx, taskID, map[string]interface{}{
		"status":         string(taskdomain.TaskStatusMatched),
		"assignedUserId": "bob",
	}))

	_, err = f.users.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)
	_, err = f.users.Ensure(ctx, "bob", "Bob")
	require.NoError(t, err)
	return taskID
}

func TestCompleteTaskByCreator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedMatchedTask(t)

	require.NoError(t, f.reviewUc.CompleteTask(ctx, taskID, "alice", 5, "did a great job"))

	task, err := f.tasks.FindByID(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, taskdomain.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)

	// The review targets the counterparty and feeds their aggregate.
	reviews, err := f.reviewUc.ReviewsOf(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "alice", reviews[0].ReviewerID)
	assert.Equal(t, 5, reviews[0].Rating)

	bob, err := f.users.FindByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 5.0, bob.Rating)
	assert.Equal(t, 1, bob.RatingCount)
}

func TestBothParticipantsComplete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedMatchedTask(t)

	require.NoError(t, f.reviewUc.CompleteTask(ctx, taskID, "alice", 4, "solid work"))
	// The second completion skips the status transition and just records
	// the other direction's review.
	require.NoError(t, f.reviewUc.CompleteTask(ctx, taskID, "bob", 5, "pleasant to work with"))

	aliceReviews, err := f.reviewUc.ReviewsOf(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceReviews, 1)
	assert.Equal(t, "bob", aliceReviews[0].ReviewerID)

	bobReviews, err := f.reviewUc.ReviewsOf(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobReviews, 1)
}

func TestCompleteTaskPreconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.reviewUc.CompleteTask(ctx, "missing", "alice", 5, "")
	assert.True(t, apperrors.IsNotFound(err))

	openID, err2 := f.tasks.Create(ctx, &taskdomain.Task{
		Title:     "Walk the dog",
		Status:    taskdomain.TaskStatusOpen,
		CreatorID: "alice",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err2)
	err = f.reviewUc.CompleteTask(ctx, openID, "alice", 5, "")
	assert.True(t, apperrors.IsPrecondition(err))

	taskID := f.seedMatchedTask(t)
	err = f.reviewUc.CompleteTask(ctx, taskID, "mallory", 5, "")
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestDuplicateReviewRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedMatchedTask(t)

	require.NoError(t, f.reviewUc.CompleteTask(ctx, taskID, "alice", 5, "first"))

	err := f.reviewUc.CompleteTask(ctx, taskID, "alice", 3, "second")
	assert.True(t, apperrors.IsPrecondition(err))

	reviews, err := f.reviewUc.ReviewsOf(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestRatingRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedMatchedTask(t)

	err := f.reviewUc.CompleteTask(ctx, taskID, "alice", 0, "")
	assert.True(t, apperrors.IsPrecondition(err))
	err = f.reviewUc.CompleteTask(ctx, taskID, "alice", 6, "")
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestRatingIsMeanOfAllReviews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	firstTask := f.seedMatchedTask(t)
	require.NoError(t, f.reviewUc.CompleteTask(ctx, firstTask, "alice", 5, ""))

	secondTask, err := f.tasks.Create(ctx, &taskdomain.Task{
		Title:     "Paint the fence",
		Status:    taskdomain.TaskStatusOpen,
		CreatorID: "alice",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.tasks.UpdateFields(ctx, secondTask, map[string]interface{}{
		"status":         string(taskdomain.TaskStatusMatched),
		"assignedUserId": "bob",
	}))
	require.NoError(t, f.reviewUc.CompleteTask(ctx, secondTask, "alice", 2, ""))

	bob, err := f.users.FindByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3.5, bob.Rating)
	assert.Equal(t, 2, bob.RatingCount)
}

func TestReviewSurvivesRatingRecomputeFailure(t *testing.T) {
	f := newFixtureWith(func(users userrepo.UserRepository) userrepo.UserRepository {
		return &brokenRatingRepo{UserRepository: users}
	})
	ctx := context.Background()
	taskID := f.seedMatchedTask(t)

	// The aggregate write fails, the review write does not.
	require.NoError(t, f.reviewUc.CompleteTask(ctx, taskID, "alice", 5, "still recorded"))

	reviews, err := f.reviewUc.ReviewsOf(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "still recorded", reviews[0].Content)
}
