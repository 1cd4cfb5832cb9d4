package usecase

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	taskdomain "github.com/dgibisch/doit2-sub002/internal/task/domain"
)

// The location negotiation sub-protocol lives entirely in the message
// stream: request -> response -> shared, with the task's locationShared
// flag as the only durable gate. Terminal states do not block a fresh
// request cycle until that flag is set.

func (u *chatUsecase) RequestLocation(ctx context.Context, chatID, requesterID string) (*domain.Message, error) {
	chat, err := u.loadChatFor(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}

	task, err := u.loadTask(ctx, chat.TaskID)
	if err != nil {
		return nil, err
	}
	if task.LocationShared {
		return nil, apperrors.Precondition("location has already been shared")
	}

	msg, err := u.append(ctx, chat, &domain.Message{
		ChatID:   chatID,
		SenderID: requesterID,
		Type:     domain.MessageTypeLocationRequest,
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (u *chatUsecase) RespondLocation(ctx context.Context, chatID, responderID string, approved bool) (bool, error) {
	chat, err := u.loadChatFor(ctx, chatID, responderID)
	if err != nil {
		return false, err
	}

	task, err := u.loadTask(ctx, chat.TaskID)
	if err != nil {
		return false, err
	}
	// Already shared: the durable gate is closed, nothing left to answer.
	if task.LocationShared {
		return false, nil
	}

	request, err := u.latestRequest(ctx, chatID)
	if err != nil {
		return false, err
	}
	if request == nil {
		return false, apperrors.Precondition("no open location request in this chat")
	}
	if request.SenderID == responderID {
		return false, apperrors.Precondition("a location request cannot be answered by its requester")
	}

	if _, err := u.append(ctx, chat, &domain.Message{
		ChatID:   chatID,
		SenderID: responderID,
		Type:     domain.MessageTypeLocationResponse,
		Approved: &approved,
	}); err != nil {
		return false, err
	}

	if !approved {
		return false, nil
	}

	// Disclose the resolved location first; the flag is only set once the
	// message is committed, so a failed append leaves no partial state.
	location := task.Location
	if _, err := u.append(ctx, chat, &domain.Message{
		ChatID:   chatID,
		SenderID: domain.SystemSender,
		Type:     domain.MessageTypeLocationShared,
		Location: &location,
	}); err != nil {
		return false, err
	}

	if err := u.taskRepo.UpdateFields(ctx, task.ID, map[string]interface{}{
		"locationShared": true,
	}); err != nil {
		return false, apperrors.Store(err, "failed to mark location as shared")
	}

	u.events.Publish(notification.Event{
		Type:   notification.EventLocationShared,
		UserID: request.SenderID,
		Data: map[string]interface{}{
			"chatId":    chatID,
			"taskId":    task.ID,
			"taskTitle": chat.TaskTitle,
		},
	})
	return true, nil
}

// latestRequest finds the most recent location_request in the chat. Every
// request is a fresh message, only the newest one is answerable.
func (u *chatUsecase) latestRequest(ctx context.Context, chatID string) (*domain.Message, error) {
	messages, err := u.msgRepo.FindByChat(ctx, chatID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load messages")
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Type == domain.MessageTypeLocationRequest {
			return &messages[i], nil
		}
	}
	return nil, nil
}

func (u *chatUsecase) loadTask(ctx context.Context, taskID string) (*taskdomain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load task")
	}
	if task == nil {
		return nil, apperrors.NotFound("task %s not found", taskID)
	}
	return task, nil
}
