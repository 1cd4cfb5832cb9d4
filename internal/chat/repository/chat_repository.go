package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// ChatRepository defines data access for chats.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (string, error)

	// FindByID returns nil without error when the chat does not exist.
	FindByID(ctx context.Context, id string) (*domain.Chat, error)

	// FindByTaskAndApplicant looks up the single chat of a (task, applicant)
	// pair. The binder calls this before ever creating a chat.
	FindByTaskAndApplicant(ctx context.Context, taskID, applicantID string) (*domain.Chat, error)

	FindByParticipant(ctx context.Context, userID string) ([]*domain.Chat, error)

	// UpdateSummary bumps the denormalized last-message fields.
	UpdateSummary(ctx context.Context, id, lastMessage string, at time.Time) error

	// SubscribeByParticipant streams all chats of a user on every change.
	SubscribeByParticipant(ctx context.Context, userID string, fn func([]*domain.Chat)) (store.Unsubscribe, error)
}

type storeChatRepository struct {
	store store.Store
}

func NewChatRepository(s store.Store) ChatRepository {
	return &storeChatRepository{store: s}
}

func (r *storeChatRepository) Create(ctx context.Context, chat *domain.Chat) (string, error) {
	return r.store.Add(ctx, store.CollectionChats, map[string]interface{}{
		"taskId":       chat.TaskID,
		"taskTitle":    chat.TaskTitle,
		"participants": chat.Participants,
		"createdAt":    store.ServerTimestamp,
	})
}

func (r *storeChatRepository) FindByID(ctx context.Context, id string) (*domain.Chat, error) {
	doc, err := r.store.Get(ctx, store.CollectionChats, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return chatFromDoc(doc), nil
}

func (r *storeChatRepository) FindByTaskAndApplicant(ctx context.Context, taskID, applicantID string) (*domain.Chat, error) {
	docs, err := r.store.Query(ctx, store.CollectionChats,
		store.Eq("taskId", taskID),
		store.ArrayContains("participants", applicantID),
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return chatFromDoc(&docs[0]), nil
}

func (r *storeChatRepository) FindByParticipant(ctx context.Context, userID string) ([]*domain.Chat, error) {
	docs, err := r.store.Query(ctx, store.CollectionChats,
		store.ArrayContains("participants", userID))
	if err != nil {
		return nil, err
	}
	return chatsFromDocs(docs), nil
}

func (r *storeChatRepository) UpdateSummary(ctx context.Context, id, lastMessage string, at time.Time) error {
	return r.store.Update(ctx, store.CollectionChats, id, map[string]interface{}{
		"lastMessage":          lastMessage,
		"lastMessageTimestamp": at,
	})
}

func (r *storeChatRepository) SubscribeByParticipant(ctx context.Context, userID string, fn func([]*domain.Chat)) (store.Unsubscribe, error) {
	return r.store.Subscribe(ctx, store.CollectionChats,
		[]store.Filter{store.ArrayContains("participants", userID)},
		func(docs []store.Document) {
			fn(chatsFromDocs(docs))
		})
}

func chatsFromDocs(docs []store.Document) []*domain.Chat {
	chats := make([]*domain.Chat, 0, len(docs))
	for i := range docs {
		chats = append(chats, chatFromDoc(&docs[i]))
	}
	return chats
}

func chatFromDoc(doc *store.Document) *domain.Chat {
	return &domain.Chat{
		ID:                   doc.ID,
		TaskID:               store.GetString(doc.Data, "taskId"),
		TaskTitle:            store.GetString(doc.Data, "taskTitle"),
		Participants:         store.GetStringSlice(doc.Data, "participants"),
		LastMessage:          store.GetString(doc.Data, "lastMessage"),
		LastMessageTimestamp: store.GetTime(doc.Data, "lastMessageTimestamp"),
		CreatedAt:            store.GetTime(doc.Data, "createdAt"),
	}
}
