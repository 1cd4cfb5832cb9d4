package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	chatrepo "github.com/dgibisch/doit2-sub002/internal/chat/repository"
	chatusecase "github.com/dgibisch/doit2-sub002/internal/chat/usecase"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/internal/task/repository"
	userrepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// captureEvents records published events instead of delivering them.
type captureEvents struct {
	mu     sync.Mutex
	events []notification.Event
}

func (c *captureEvents) Publish(event notification.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *captureEvents) ofType(eventType string) []notification.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notification.Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	taskUc TaskUsecase
	chatUc chatusecase.ChatUsecase
	events *captureEvents
}

func newFixture() *fixture {
	s := store.NewMemoryStore()
	events := &captureEvents{}

	users := userrepo.NewUserRepository(s)
	tasks := repository.NewTaskRepository(s)
	apps := repository.NewApplicationRepository(s)
	comments := repository.NewCommentRepository(s)
	chats := chatrepo.NewChatRepository(s)
	messages := chatrepo.NewMessageRepository(s)

	chatUc := chatusecase.NewChatUsecase(chats, messages, tasks, users, events)
	taskUc := NewTaskUsecase(tasks, apps, comments, chats, chatUc, events)

	return &fixture{taskUc: taskUc, chatUc: chatUc, events: events}
}

func (f *fixture) createTask(t *testing.T, creatorID, creatorName string) *domain.Task {
	t.Helper()
	task, err := f.taskUc.CreateTask(context.Background(), creatorID, creatorName, CreateTaskRequest{
		Title:    "Mow the lawn",
		Category: "gardening",
		Address:  "Hauptstrasse 5",
		Lat:      48.1,
		Lng:      11.5,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	f := newFixture()

	_, err := f.taskUc.CreateTask(context.Background(), "alice", "Alice", CreateTaskRequest{})
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestApplyForTaskCreatesChatApplicationAndMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createTask(t, "alice", "Alice")

	result, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "I can do this tomorrow")
	require.NoError(t, err)
	require.NotEmpty(t, result.ChatID)

	apps, err := f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "bob", apps[0].ApplicantID)
	assert.Equal(t, domain.ApplicationStatusPending, apps[0].Status)

	messages, err := f.chatUc.Messages(ctx, result.ChatID, "bob")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "I can do this tomorrow", messages[0].Content)

	received := f.events.ofType(notification.EventApplicationReceived)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].UserID)
}

func TestApplyForTaskTwiceReturnsSameChat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createTask(t, "alice", "Alice")

	first, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "first message")
	require.NoError(t, err)

	second, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "second message")
	require.NoError(t, err)
	assert.Equal(t, first.ChatID, second.ChatID)

	// No duplicate application, no duplicate opening message.
	apps, err := f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	messages, err := f.chatUc.Messages(ctx, first.ChatID, "bob")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestApplyForTaskRejectsCreator(t *testing.T) {
	f := newFixture()
	task := f.createTask(t, "alice", "Alice")

	_, err := f.taskUc.ApplyForTask(context.Background(), task.ID, "alice", "Alice", "")
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestApplyForTaskUnknownTask(t *testing.T) {
	f := newFixture()

	_, err := f.taskUc.ApplyForTask(context.Background(), "missing", "bob", "Bob", "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAcceptApplication(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createTask(t, "alice", "Alice")

	_, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "pick me")
	require.NoError(t, err)
	_, err = f.taskUc.ApplyForTask(ctx, task.ID, "carol", "Carol", "no, me")
	require.NoError(t, err)

	apps, err := f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	require.Len(t, apps, 2)

	var bobApp *domain.Application
	for _, app := range apps {
		if app.ApplicantID == "bob" {
			bobApp = app
		}
	}
	require.NotNil(t, bobApp)

	require.NoError(t, f.taskUc.AcceptApplication(ctx, task.ID, "alice", bobApp.ID))

	updated, err := f.taskUc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusMatched, updated.Status)
	assert.Equal(t, "bob", updated.AssignedUserID)

	apps, err = f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	for _, app := range apps {
		switch app.ApplicantID {
		case "bob":
			assert.Equal(t, domain.ApplicationStatusAccepted, app.Status)
		case "carol":
			assert.Equal(t, domain.ApplicationStatusRejected, app.Status)
		}
	}
}

func TestAcceptApplicationOnlyCreator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createTask(t, "alice", "Alice")

	_, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "")
	require.NoError(t, err)

	apps, err := f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	require.Len(t, apps, 1)

	err = f.taskUc.AcceptApplication(ctx, task.ID, "bob", apps[0].ID)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestApplyForMatchedTask(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createTask(t, "alice", "Alice")

	_, err := f.taskUc.ApplyForTask(ctx, task.ID, "bob", "Bob", "")
	require.NoError(t, err)
	apps, err := f.taskUc.ListApplications(ctx, task.ID, "alice")
	require.NoError(t, err)
	require.NoError(t, f.taskUc.AcceptApplication(ctx, task.ID, "alice", apps[0].ID))

	_, err = f.taskUc.ApplyForTask(ctx, task.ID, "carol", "Carol", "")
	assert.True(t, apperrors.IsPrecondition(err))
}
