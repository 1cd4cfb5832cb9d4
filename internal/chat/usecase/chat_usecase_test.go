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
	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/internal/chat/repository"
	"github.com/dgibisch/doit2-sub002/internal/notification"
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

type fixture struct {
	chatUc ChatUsecase
	tasks  taskrepo.TaskRepository
	chats  repository.ChatRepository
	users  userrepo.UserRepository
	events *captureEvents
}

func newFixture() *fixture {
	s := store.NewMemoryStore()
	events := &captureEvents{}

	users := userrepo.NewUserRepository(s)
	tasks := taskrepo.NewTaskRepository(s)
	chats := repository.NewChatRepository(s)
	messages := repository.NewMessageRepository(s)

	return &fixture{
		chatUc: NewChatUsecase(chats, messages, tasks, users, events),
		tasks:  tasks,
		chats:  chats,
		users:  users,
		events: events,
	}
}

// seedChat creates a task owned by "alice" and its chat with applicant
// "bob", returning both ids.
func (f *fixture) seedChat(t *testing.T) (taskID, chatID string) {
	t.Helper()
	ctx := context.Background()

	taskID, err := f.tasks.Create(ctx, &taskdomain.Task{
		Title:     "Mow the lawn",
		Status:    taskdomain.TaskStatusOpen,
		CreatorID: "alice",
		Location: taskdomain.Location{
			Address:     "Hauptstrasse 5",
			Coordinates: taskdomain.Coordinates{Lat: 48.1, Lng: 11.5},
		},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	chatID, err = f.chats.Create(ctx, &domain.Chat{
		TaskID:       taskID,
		TaskTitle:    "Mow the lawn",
		Participants: []string{"alice", "bob"},
	})
	require.NoError(t, err)
	return taskID, chatID
}

func TestAppendTextAndOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.chatUc.AppendText(ctx, chatID, "alice", "hello")
	require.NoError(t, err)
	_, err = f.chatUc.AppendText(ctx, chatID, "bob", "hi there")
	require.NoError(t, err)

	messages, err := f.chatUc.Messages(ctx, chatID, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "hi there", messages[1].Content)
}

func TestAppendTextRejectsOutsiders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.chatUc.AppendText(ctx, chatID, "mallory", "let me in")
	assert.True(t, apperrors.IsPrecondition(err))

	_, err = f.chatUc.AppendText(ctx, "missing", "alice", "hello")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLocationApprovedFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID, chatID := f.seedChat(t)

	_, err := f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)

	shared, err := f.chatUc.RespondLocation(ctx, chatID, "bob", true)
	require.NoError(t, err)
	assert.True(t, shared)

	task, err := f.tasks.FindByID(ctx, taskID)
	require.NoError(t, err)
	assert.True(t, task.LocationShared)

	messages, err := f.chatUc.Messages(ctx, chatID, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, domain.MessageTypeLocationRequest, messages[0].Type)
	assert.Equal(t, domain.MessageTypeLocationResponse, messages[1].Type)
	require.NotNil(t, messages[1].Approved)
	assert.True(t, *messages[1].Approved)
	assert.Equal(t, domain.MessageTypeLocationShared, messages[2].Type)
	assert.Equal(t, domain.SystemSender, messages[2].SenderID)
	require.NotNil(t, messages[2].Location)
	assert.Equal(t, "Hauptstrasse 5", messages[2].Location.Address)
	assert.Equal(t, 48.1, messages[2].Location.Coordinates.Lat)
}

func TestLocationDeclinedFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID, chatID := f.seedChat(t)

	_, err := f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)

	shared, err := f.chatUc.RespondLocation(ctx, chatID, "bob", false)
	require.NoError(t, err)
	assert.False(t, shared)

	task, err := f.tasks.FindByID(ctx, taskID)
	require.NoError(t, err)
	assert.False(t, task.LocationShared)

	messages, err := f.chatUc.Messages(ctx, chatID, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.MessageTypeLocationRequest, messages[0].Type)
	assert.Equal(t, domain.MessageTypeLocationResponse, messages[1].Type)
}

func TestRequesterCannotAnswerOwnRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)

	_, err = f.chatUc.RespondLocation(ctx, chatID, "alice", true)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestRespondWithoutRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.chatUc.RespondLocation(ctx, chatID, "bob", true)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestLocationGateIsMonotonic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)
	_, err = f.chatUc.RespondLocation(ctx, chatID, "bob", true)
	require.NoError(t, err)

	// A new request is rejected once the gate is closed.
	_, err = f.chatUc.RequestLocation(ctx, chatID, "bob")
	assert.True(t, apperrors.IsPrecondition(err))

	// Responding again is a no-op, not an error.
	shared, err := f.chatUc.RespondLocation(ctx, chatID, "bob", true)
	require.NoError(t, err)
	assert.False(t, shared)

	messages, err := f.chatUc.Messages(ctx, chatID, "alice")
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestDeclineAllowsFreshCycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID, chatID := f.seedChat(t)

	_, err := f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)
	shared, err := f.chatUc.RespondLocation(ctx, chatID, "bob", false)
	require.NoError(t, err)
	require.False(t, shared)

	_, err = f.chatUc.RequestLocation(ctx, chatID, "alice")
	require.NoError(t, err)
	shared, err = f.chatUc.RespondLocation(ctx, chatID, "bob", true)
	require.NoError(t, err)
	assert.True(t, shared)

	task, err := f.tasks.FindByID(ctx, taskID)
	require.NoError(t, err)
	assert.True(t, task.LocationShared)
}

func TestUserChatsUnreadState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	_, err := f.users.Ensure(ctx, "alice", "Alice")
	require.NoError(t, err)

	_, err = f.chatUc.AppendText(ctx, chatID, "bob", "are you still offering this?")
	require.NoError(t, err)

	chats, err := f.chatUc.UserChats(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.True(t, chats[0].Unread)
	assert.Equal(t, "are you still offering this?", chats[0].LastMessage)

	require.NoError(t, f.chatUc.MarkRead(ctx, "alice", chatID))

	chats, err = f.chatUc.UserChats(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.False(t, chats[0].Unread)
}

// brokenSummaryRepo fails every summary bump; the message append itself
// must still succeed.
type brokenSummaryRepo struct {
	repository.ChatRepository
}

func (r *brokenSummaryRepo) UpdateSummary(ctx context.Context, id, lastMessage string, at time.Time) error {
	return errors.New("summary store down")
}

func TestAppendSurvivesSummaryFailure(t *testing.T) {
	s := store.NewMemoryStore()
	events := &captureEvents{}

	users := userrepo.NewUserRepository(s)
	tasks := taskrepo.NewTaskRepository(s)
	chats := repository.NewChatRepository(s)
	messages := repository.NewMessageRepository(s)
	chatUc := NewChatUsecase(&brokenSummaryRepo{ChatRepository: chats}, messages, tasks, users, events)

	ctx := context.Background()
	chatID, err := chats.Create(ctx, &domain.Chat{
		TaskID:       "t1",
		TaskTitle:    "Mow the lawn",
		Participants: []string{"alice", "bob"},
	})
	require.NoError(t, err)

	msg, err := chatUc.AppendText(ctx, chatID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)

	stored, err := chatUc.Messages(ctx, chatID, "alice")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSummaryCarriesStoredTimestamp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, chatID := f.seedChat(t)

	msg, err := f.chatUc.AppendText(ctx, chatID, "bob", "see you at 5")
	require.NoError(t, err)
	require.False(t, msg.Timestamp.IsZero())

	stored, err := f.chatUc.Messages(ctx, chatID, "bob")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, msg.Timestamp.Equal(stored[0].Timestamp))

	chat, err := f.chats.FindByID(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.True(t, chat.LastMessageTimestamp.Equal(stored[0].Timestamp))
}

func TestSummarizeChatsOrdersByActivity(t *testing.T) {
	now := time.Now()
	chats := []*domain.Chat{
		{ID: "old", LastMessage: "a", LastMessageTimestamp: now.Add(-time.Hour)},
		{ID: "new", LastMessage: "b", LastMessageTimestamp: now},
	}

	summaries := SummarizeChats(chats, nil)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "old", summaries[1].ID)
	assert.True(t, summaries[0].Unread)
}
