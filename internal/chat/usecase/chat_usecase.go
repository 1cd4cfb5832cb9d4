package usecase

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/internal/chat/repository"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	taskrepo "github.com/dgibisch/doit2-sub002/internal/task/repository"
	userrepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// chatUsecase implements ChatUsecase.
type chatUsecase struct {
	chatRepo repository.ChatRepository
	msgRepo  repository.MessageRepository
	taskRepo taskrepo.TaskRepository
	userRepo userrepo.UserRepository
	events   notification.Publisher
}

func NewChatUsecase(chatRepo repository.ChatRepository, msgRepo repository.MessageRepository, taskRepo taskrepo.TaskRepository, userRepo userrepo.UserRepository, events notification.Publisher) ChatUsecase {
	return &chatUsecase{
		chatRepo: chatRepo,
		msgRepo:  msgRepo,
		taskRepo: taskRepo,
		userRepo: userRepo,
		events:   events,
	}
}

func (u *chatUsecase) AppendText(ctx context.Context, chatID, senderID, content string) (*domain.Message, error) {
	chat, err := u.loadChatFor(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, apperrors.Precondition("message must not be empty")
	}

	msg, err := u.append(ctx, chat, &domain.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Type:     domain.MessageTypeText,
		Content:  content,
	})
	if err != nil {
		return nil, err
	}

	u.events.Publish(notification.Event{
		Type:   notification.EventMessageReceived,
		UserID: otherParticipant(chat, senderID),
		Data: map[string]interface{}{
			"chatId":    chatID,
			"taskId":    chat.TaskID,
			"taskTitle": chat.TaskTitle,
		},
	})
	return msg, nil
}

func (u *chatUsecase) PostApplicationMessage(ctx context.Context, chatID, applicantID, content string) error {
	chat, err := u.loadChatFor(ctx, chatID, applicantID)
	if err != nil {
		return err
	}
	_, err = u.append(ctx, chat, &domain.Message{
		ChatID:   chatID,
		SenderID: applicantID,
		Type:     domain.MessageTypeText,
		Content:  content,
	})
	return err
}

// append writes the message and then bumps the chat's denormalized summary.
// The summary update is best-effort: a failure is logged, never returned,
// since the message itself is already committed.
func (u *chatUsecase) append(ctx context.Context, chat *domain.Chat, msg *domain.Message) (*domain.Message, error) {
	stored, err := u.msgRepo.Append(ctx, msg)
	if err != nil {
		return nil, apperrors.Store(err, "failed to append message")
	}

	// The summary carries the store-assigned timestamp of the message it
	// denormalizes.
	if err := u.chatRepo.UpdateSummary(ctx, chat.ID, summaryText(stored), stored.Timestamp); err != nil {
		log.Printf("[Chat] failed to update summary for chat %s: %v", chat.ID, err)
	}
	return stored, nil
}

func (u *chatUsecase) Messages(ctx context.Context, chatID, userID string) ([]domain.Message, error) {
	if _, err := u.loadChatFor(ctx, chatID, userID); err != nil {
		return nil, err
	}
	messages, err := u.msgRepo.FindByChat(ctx, chatID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load messages")
	}
	return messages, nil
}

func (u *chatUsecase) SubscribeMessages(ctx context.Context, chatID string, fn func([]domain.Message)) (store.Unsubscribe, error) {
	return u.msgRepo.SubscribeByChat(ctx, chatID, fn)
}

func (u *chatUsecase) UserChats(ctx context.Context, userID string) ([]domain.ChatSummary, error) {
	chats, err := u.chatRepo.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load chats")
	}
	lastRead, err := u.lastReadOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SummarizeChats(chats, lastRead), nil
}

func (u *chatUsecase) SubscribeUserChats(ctx context.Context, userID string, fn func([]domain.ChatSummary)) (store.Unsubscribe, error) {
	return u.chatRepo.SubscribeByParticipant(ctx, userID, func(chats []*domain.Chat) {
		lastRead, err := u.lastReadOf(ctx, userID)
		if err != nil {
			log.Printf("[Chat] failed to load read markers for %s: %v", userID, err)
			lastRead = nil
		}
		fn(SummarizeChats(chats, lastRead))
	})
}

func (u *chatUsecase) MarkRead(ctx context.Context, userID, chatID string) error {
	if _, err := u.loadChatFor(ctx, chatID, userID); err != nil {
		return err
	}
	if err := u.userRepo.SetLastRead(ctx, userID, chatID, time.Now()); err != nil {
		return apperrors.Store(err, "failed to update read marker")
	}
	return nil
}

func (u *chatUsecase) lastReadOf(ctx context.Context, userID string) (map[string]time.Time, error) {
	profile, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load profile")
	}
	if profile == nil {
		return nil, nil
	}
	return profile.LastRead, nil
}

// loadChatFor loads the chat and verifies the user participates in it.
func (u *chatUsecase) loadChatFor(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := u.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load chat")
	}
	if chat == nil {
		return nil, apperrors.NotFound("chat %s not found", chatID)
	}
	if userID != domain.SystemSender && !isParticipant(chat, userID) {
		return nil, apperrors.Precondition("user is not a participant of this chat")
	}
	return chat, nil
}

// SummarizeChats is the pure unread transform: a chat is unread iff it has a
// last message and the viewer's read marker is absent or older. Results are
// ordered by most recent activity.
func SummarizeChats(chats []*domain.Chat, lastRead map[string]time.Time) []domain.ChatSummary {
	summaries := make([]domain.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		unread := false
		if !chat.LastMessageTimestamp.IsZero() {
			marker, ok := lastRead[chat.ID]
			unread = !ok || marker.Before(chat.LastMessageTimestamp)
		}
		summaries = append(summaries, domain.ChatSummary{Chat: *chat, Unread: unread})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTimestamp.After(summaries[j].LastMessageTimestamp)
	})
	return summaries
}

func isParticipant(chat *domain.Chat, userID string) bool {
	for _, p := range chat.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func otherParticipant(chat *domain.Chat, userID string) string {
	for _, p := range chat.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func summaryText(msg *domain.Message) string {
	switch msg.Type {
	case domain.MessageTypeLocationRequest:
		return "Location requested"
	case domain.MessageTypeLocationResponse:
		if msg.Approved != nil && *msg.Approved {
			return "Location request approved"
		}
		return "Location request declined"
	case domain.MessageTypeLocationShared:
		return "Location shared"
	default:
		return msg.Content
	}
}
