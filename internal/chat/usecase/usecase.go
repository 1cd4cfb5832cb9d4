package usecase

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// ChatUsecase is the message stream plus the location negotiation
// sub-protocol and the chat-list projection built on top of it.
type ChatUsecase interface {
	// AppendText appends a plain text message authored by senderID and
	// notifies the other participant.
	AppendText(ctx context.Context, chatID, senderID, content string) (*domain.Message, error)

	// PostApplicationMessage appends the applicant's opening message
	// without a message notification; the application event covers it.
	PostApplicationMessage(ctx context.Context, chatID, applicantID, content string) error

	// Messages returns the chat's messages in display order.
	Messages(ctx context.Context, chatID, userID string) ([]domain.Message, error)

	// SubscribeMessages streams the ordered message list on every change.
	SubscribeMessages(ctx context.Context, chatID string, fn func([]domain.Message)) (store.Unsubscribe, error)

	// RequestLocation appends a location_request message. Rejected while
	// the task's location is already shared.
	RequestLocation(ctx context.Context, chatID, requesterID string) (*domain.Message, error)

	// RespondLocation answers the latest open location request. Only the
	// participant who did not send that request may answer. On approval
	// the task's location is resolved into a location_shared message and
	// the task's locationShared flag is set; the returned bool reports
	// whether the location is now shared.
	RespondLocation(ctx context.Context, chatID, responderID string, approved bool) (bool, error)

	// UserChats lists the user's chats with their unread state.
	UserChats(ctx context.Context, userID string) ([]domain.ChatSummary, error)

	// SubscribeUserChats streams the user's chat list with unread state
	// on every change.
	SubscribeUserChats(ctx context.Context, userID string, fn func([]domain.ChatSummary)) (store.Unsubscribe, error)

	// MarkRead records that the user has seen the chat as of now.
	MarkRead(ctx context.Context, userID, chatID string) error
}
