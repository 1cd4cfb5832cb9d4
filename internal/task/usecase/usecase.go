package usecase

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// CreateTaskRequest carries the fields of a new task posting.
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// ApplyResult is what the binder hands back to the caller: the id of the
// (possibly pre-existing) chat for this (task, applicant) pair.
type ApplyResult struct {
	ChatID string `json:"chat_id"`
}

// TaskUsecase covers the task surface: postings, the application/chat
// binder, and the comment projection.
type TaskUsecase interface {
	CreateTask(ctx context.Context, creatorID, creatorName string, req CreateTaskRequest) (*domain.Task, error)

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	ListOpenTasks(ctx context.Context, category string) ([]*domain.Task, error)

	ListOwnTasks(ctx context.Context, creatorID string) ([]*domain.Task, error)

	// ApplyForTask binds an applicant to a task: it reuses or creates the
	// single chat of the (task, applicant) pair, records a pending
	// application and posts the applicant's message into the chat.
	// Calling it twice for the same pair never produces a second chat.
	ApplyForTask(ctx context.Context, taskID, applicantID, applicantName, message string) (*ApplyResult, error)

	// AcceptApplication advances the task open -> matched, setting
	// assignedUserId exactly once; remaining pending applications of the
	// task are rejected.
	AcceptApplication(ctx context.Context, taskID, creatorID, applicationID string) error

	ListApplications(ctx context.Context, taskID, creatorID string) ([]*domain.Application, error)

	AddComment(ctx context.Context, taskID, authorID, authorName, parentID, content string) (*domain.Comment, error)

	// CommentTree returns the task's comments as a two-level tree.
	CommentTree(ctx context.Context, taskID string) ([]domain.CommentNode, error)

	// SubscribeCommentTree streams the rebuilt tree on every change.
	SubscribeCommentTree(ctx context.Context, taskID string, fn func([]domain.CommentNode)) (store.Unsubscribe, error)
}
