package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/chat/domain"
	"github.com/dgibisch/doit2-sub002/internal/chat/usecase"
	"github.com/dgibisch/doit2-sub002/pkg/sse"
)

// ChatHandler handles chat and location negotiation HTTP requests.
type ChatHandler struct {
	chatUsecase usecase.ChatUsecase
}

func NewChatHandler(chatUsecase usecase.ChatUsecase) *ChatHandler {
	return &ChatHandler{chatUsecase: chatUsecase}
}

// GetChats lists the caller's chats with unread state.
// GET /api/chats
func (h *ChatHandler) GetChats(c *gin.Context) {
	userID := c.GetString("userID")

	chats, err := h.chatUsecase.UserChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if chats == nil {
		chats = []domain.ChatSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StreamChats streams the caller's chat list on every change.
// GET /api/chats/events
func (h *ChatHandler) StreamChats(c *gin.Context) {
	userID := c.GetString("userID")

	snapshots := make(chan interface{}, 1)
	unsubscribe, err := h.chatUsecase.SubscribeUserChats(c.Request.Context(), userID, func(chats []domain.ChatSummary) {
		sse.Coalesce(snapshots, chats)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer unsubscribe()

	sse.Stream(c, "chats", snapshots)
}

// GetMessages returns the chat's messages in display order.
// GET /api/chats/:id/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.GetString("userID")

	messages, err := h.chatUsecase.Messages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// StreamMessages streams the chat's ordered message list on every change.
// GET /api/chats/:id/messages/events
func (h *ChatHandler) StreamMessages(c *gin.Context) {
	userID := c.GetString("userID")
	chatID := c.Param("id")

	// Participant check before the stream opens.
	if _, err := h.chatUsecase.Messages(c.Request.Context(), chatID, userID); err != nil {
		respondError(c, err)
		return
	}

	snapshots := make(chan interface{}, 1)
	unsubscribe, err := h.chatUsecase.SubscribeMessages(c.Request.Context(), chatID, func(messages []domain.Message) {
		sse.Coalesce(snapshots, messages)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer unsubscribe()

	sse.Stream(c, "messages", snapshots)
}

// SendMessage appends a text message to the chat.
// POST /api/chats/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.chatUsecase.AppendText(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// RequestLocation asks the other participant to share the task location.
// POST /api/chats/:id/location/request
func (h *ChatHandler) RequestLocation(c *gin.Context) {
	userID := c.GetString("userID")

	message, err := h.chatUsecase.RequestLocation(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// RespondLocation answers the open location request.
// POST /api/chats/:id/location/respond
func (h *ChatHandler) RespondLocation(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Approved *bool `json:"approved" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shared, err := h.chatUsecase.RespondLocation(c.Request.Context(), c.Param("id"), userID, *req.Approved)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locationShared": shared})
}

// MarkRead records that the caller has seen the chat as of now.
// POST /api/chats/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.chatUsecase.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chat marked read"})
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
