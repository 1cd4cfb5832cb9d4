package delivery

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	reviewuc "github.com/dgibisch/doit2-sub002/internal/review/usecase"
	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/internal/task/usecase"
	useruc "github.com/dgibisch/doit2-sub002/internal/user/usecase"
	"github.com/dgibisch/doit2-sub002/pkg/sse"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskUsecase   usecase.TaskUsecase
	reviewUsecase reviewuc.ReviewUsecase
	userUsecase   useruc.UserUsecase
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase, reviewUsecase reviewuc.ReviewUsecase, userUsecase useruc.UserUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase:   taskUsecase,
		reviewUsecase: reviewUsecase,
		userUsecase:   userUsecase,
	}
}

// CreateTask creates a new task posting.
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID := c.GetString("userID")
	userName := c.GetString("userName")

	var req usecase.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), userID, userName, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTasks lists open tasks, optionally filtered by category.
// GET /api/tasks?category=gardening
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskUsecase.ListOpenTasks(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetOwnTasks lists the caller's own postings.
// GET /api/tasks/mine
func (h *TaskHandler) GetOwnTasks(c *gin.Context) {
	userID := c.GetString("userID")

	tasks, err := h.taskUsecase.ListOwnTasks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTaskByID returns one task.
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskUsecase.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Apply applies for a task and returns the chat id of the pair.
// POST /api/tasks/:id/apply
func (h *TaskHandler) Apply(c *gin.Context) {
	userID := c.GetString("userID")
	userName := c.GetString("userName")

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.taskUsecase.ApplyForTask(c.Request.Context(), c.Param("id"), userID, userName, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Accept accepts one application, matching the task.
// POST /api/tasks/:id/accept
func (h *TaskHandler) Accept(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		ApplicationID string `json:"application_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.taskUsecase.AcceptApplication(c.Request.Context(), c.Param("id"), userID, req.ApplicationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "application accepted"})
}

// GetApplications lists the applications of the caller's task.
// GET /api/tasks/:id/applications
func (h *TaskHandler) GetApplications(c *gin.Context) {
	userID := c.GetString("userID")

	apps, err := h.taskUsecase.ListApplications(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if apps == nil {
		apps = []*domain.Application{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// Complete marks the task completed and records the caller's review.
// POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Rating int    `json:"rating" binding:"required"`
		Review string `json:"review"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reviewUsecase.CompleteTask(c.Request.Context(), c.Param("id"), userID, req.Rating, req.Review); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task completed"})
}

// ToggleBookmark toggles the task in the caller's bookmark list.
// POST /api/tasks/:id/bookmark
func (h *TaskHandler) ToggleBookmark(c *gin.Context) {
	userID := c.GetString("userID")

	bookmarked, err := h.userUsecase.ToggleBookmark(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": bookmarked})
}

// AddComment posts a comment or reply on a task.
// POST /api/tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	userID := c.GetString("userID")
	userName := c.GetString("userName")

	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.taskUsecase.AddComment(c.Request.Context(), c.Param("id"), userID, userName, req.ParentID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GetComments returns the task's two-level comment tree.
// GET /api/tasks/:id/comments
func (h *TaskHandler) GetComments(c *gin.Context) {
	tree, err := h.taskUsecase.CommentTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if tree == nil {
		tree = []domain.CommentNode{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": tree})
}

// StreamComments streams the rebuilt comment tree on every change.
// GET /api/tasks/:id/comments/events
func (h *TaskHandler) StreamComments(c *gin.Context) {
	snapshots := make(chan interface{}, 1)
	unsubscribe, err := h.taskUsecase.SubscribeCommentTree(c.Request.Context(), c.Param("id"), func(tree []domain.CommentNode) {
		sse.Coalesce(snapshots, tree)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer unsubscribe()

	sse.Stream(c, "comments", snapshots)
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
