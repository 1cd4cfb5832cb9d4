package usecase

import (
	"context"
	"log"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	chatdomain "github.com/dgibisch/doit2-sub002/internal/chat/domain"
	chatrepo "github.com/dgibisch/doit2-sub002/internal/chat/repository"
	chatusecase "github.com/dgibisch/doit2-sub002/internal/chat/usecase"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/internal/task/repository"
)

// taskUsecase implements TaskUsecase.
type taskUsecase struct {
	taskRepo    repository.TaskRepository
	appRepo     repository.ApplicationRepository
	commentRepo repository.CommentRepository
	chatRepo    chatrepo.ChatRepository
	chatUsecase chatusecase.ChatUsecase
	events      notification.Publisher
}

func NewTaskUsecase(taskRepo repository.TaskRepository, appRepo repository.ApplicationRepository, commentRepo repository.CommentRepository, chatRepo chatrepo.ChatRepository, chatUc chatusecase.ChatUsecase, events notification.Publisher) TaskUsecase {
	return &taskUsecase{
		taskRepo:    taskRepo,
		appRepo:     appRepo,
		commentRepo: commentRepo,
		chatRepo:    chatRepo,
		chatUsecase: chatUc,
		events:      events,
	}
}

func (u *taskUsecase) CreateTask(ctx context.Context, creatorID, creatorName string, req CreateTaskRequest) (*domain.Task, error) {
	if req.Title == "" {
		return nil, apperrors.Precondition("title must not be empty")
	}

	task := &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      domain.TaskStatusOpen,
		CreatorID:   creatorID,
		CreatorName: creatorName,
		Location: domain.Location{
			Address:     req.Address,
			Coordinates: domain.Coordinates{Lat: req.Lat, Lng: req.Lng},
		},
		CreatedAt: time.Now(),
	}
	id, err := u.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, apperrors.Store(err, "failed to create task")
	}
	task.ID = id
	return task, nil
}

func (u *taskUsecase) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return u.loadTask(ctx, taskID)
}

func (u *taskUsecase) ListOpenTasks(ctx context.Context, category string) ([]*domain.Task, error) {
	tasks, err := u.taskRepo.FindOpen(ctx, category)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list tasks")
	}
	return tasks, nil
}

func (u *taskUsecase) ListOwnTasks(ctx context.Context, creatorID string) ([]*domain.Task, error) {
	tasks, err := u.taskRepo.FindByCreator(ctx, creatorID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list tasks")
	}
	return tasks, nil
}

// ApplyForTask is the application/chat binder. The chat lookup always runs
// before any create (read-then-act), which keeps the one-chat-per-pair
// invariant without a cross-document transaction.
func (u *taskUsecase) ApplyForTask(ctx context.Context, taskID, applicantID, applicantName, message string) (*ApplyResult, error) {
	task, err := u.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatorID == applicantID {
		return nil, apperrors.Precondition("you cannot apply for your own task")
	}
	if task.Status != domain.TaskStatusOpen {
		return nil, apperrors.Precondition("task is no longer open")
	}

	chat, err := u.chatRepo.FindByTaskAndApplicant(ctx, taskID, applicantID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to look up chat")
	}

	apps, err := u.appRepo.FindByTaskAndApplicant(ctx, taskID, applicantID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to look up applications")
	}
	var pending *domain.Application
	for _, app := range apps {
		if app.Status == domain.ApplicationStatusAccepted {
			return nil, apperrors.Precondition("already applied")
		}
		if app.Status == domain.ApplicationStatusPending {
			pending = app
		}
	}
	// Re-applying while an application is still pending opens the same
	// chat instead of duplicating anything.
	if pending != nil && chat != nil {
		return &ApplyResult{ChatID: chat.ID}, nil
	}

	chatID := ""
	if chat != nil {
		chatID = chat.ID
	} else {
		chatID, err = u.chatRepo.Create(ctx, &chatdomain.Chat{
			TaskID:       taskID,
			TaskTitle:    task.Title,
			Participants: []string{task.CreatorID, applicantID},
		})
		if err != nil {
			return nil, apperrors.Store(err, "failed to create chat")
		}
	}

	if pending == nil {
		_, err = u.appRepo.Create(ctx, &domain.Application{
			TaskID:        taskID,
			ApplicantID:   applicantID,
			ApplicantName: applicantName,
			Message:       message,
			Status:        domain.ApplicationStatusPending,
		})
		if err != nil {
			return nil, apperrors.Store(err, "failed to create application")
		}

		if message != "" {
			if err := u.chatUsecase.PostApplicationMessage(ctx, chatID, applicantID, message); err != nil {
				return nil, err
			}
		}
	}

	u.events.Publish(notification.Event{
		Type:   notification.EventApplicationReceived,
		UserID: task.CreatorID,
		Data: map[string]interface{}{
			"taskId":    taskID,
			"taskTitle": task.Title,
			"chatId":    chatID,
		},
	})
	return &ApplyResult{ChatID: chatID}, nil
}

func (u *taskUsecase) AcceptApplication(ctx context.Context, taskID, creatorID, applicationID string) error {
	task, err := u.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.CreatorID != creatorID {
		return apperrors.Precondition("only the task creator can accept applications")
	}
	if task.Status != domain.TaskStatusOpen {
		return apperrors.Precondition("task is no longer open")
	}

	apps, err := u.appRepo.FindByTask(ctx, taskID)
	if err != nil {
		return apperrors.Store(err, "failed to load applications")
	}
	var accepted *domain.Application
	for _, app := range apps {
		if app.ID == applicationID {
			accepted = app
			break
		}
	}
	if accepted == nil {
		return apperrors.NotFound("application %s not found", applicationID)
	}
	if accepted.Status != domain.ApplicationStatusPending {
		return apperrors.Precondition("application is no longer pending")
	}

	// assignedUserId is written exactly once, at this transition.
	if err := u.taskRepo.UpdateFields(ctx, taskID, map[string]interface{}{
		"status":         string(domain.TaskStatusMatched),
		"assignedUserId": accepted.ApplicantID,
	}); err != nil {
		return apperrors.Store(err, "failed to update task")
	}

	if err := u.appRepo.UpdateStatus(ctx, accepted.ID, domain.ApplicationStatusAccepted); err != nil {
		return apperrors.Store(err, "failed to update application")
	}
	for _, app := range apps {
		if app.ID == accepted.ID || app.Status != domain.ApplicationStatusPending {
			continue
		}
		if err := u.appRepo.UpdateStatus(ctx, app.ID, domain.ApplicationStatusRejected); err != nil {
			log.Printf("[Binder] failed to reject application %s: %v", app.ID, err)
		}
	}
	return nil
}

func (u *taskUsecase) ListApplications(ctx context.Context, taskID, creatorID string) ([]*domain.Application, error) {
	task, err := u.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatorID != creatorID {
		return nil, apperrors.Precondition("only the task creator can list applications")
	}
	apps, err := u.appRepo.FindByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load applications")
	}
	return apps, nil
}

func (u *taskUsecase) loadTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load task")
	}
	if task == nil {
		return nil, apperrors.NotFound("task %s not found", taskID)
	}
	return task, nil
}
