package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	reviewdomain "github.com/dgibisch/doit2-sub002/internal/review/domain"
	reviewuc "github.com/dgibisch/doit2-sub002/internal/review/usecase"
	"github.com/dgibisch/doit2-sub002/internal/user/usecase"
)

// UserHandler handles profile, bookmark and device token requests.
type UserHandler struct {
	userUsecase   usecase.UserUsecase
	reviewUsecase reviewuc.ReviewUsecase
}

func NewUserHandler(userUsecase usecase.UserUsecase, reviewUsecase reviewuc.ReviewUsecase) *UserHandler {
	return &UserHandler{userUsecase: userUsecase, reviewUsecase: reviewUsecase}
}

// GetProfile returns a user's public profile.
// GET /api/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userUsecase.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile.Public())
}

// GetReviews lists the reviews a user has received.
// GET /api/users/:id/reviews
func (h *UserHandler) GetReviews(c *gin.Context) {
	reviews, err := h.reviewUsecase.ReviewsOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if reviews == nil {
		reviews = []*reviewdomain.Review{}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// GetBookmarks lists the caller's bookmarked task ids.
// GET /api/bookmarks
func (h *UserHandler) GetBookmarks(c *gin.Context) {
	userID := c.GetString("userID")

	bookmarks, err := h.userUsecase.Bookmarks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if bookmarks == nil {
		bookmarks = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

// RegisterDeviceToken registers an FCM device token for push delivery.
// POST /api/devices
func (h *UserHandler) RegisterDeviceToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userUsecase.RegisterDeviceToken(c.Request.Context(), userID, req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device token registered"})
}

// UnregisterDeviceToken removes an FCM device token.
// DELETE /api/devices
func (h *UserHandler) UnregisterDeviceToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userUsecase.UnregisterDeviceToken(c.Request.Context(), userID, req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device token removed"})
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
