package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgibisch/doit2-sub002/internal/auth/usecase"
	useruc "github.com/dgibisch/doit2-sub002/internal/user/usecase"
)

// AuthHandler handles identity HTTP requests.
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	userUsecase useruc.UserUsecase
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, userUsecase useruc.UserUsecase) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		userUsecase: userUsecase,
	}
}

// DevToken issues a locally signed token. Registered in dev mode only.
// POST /api/auth/token
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Name   string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authUsecase.IssueDevToken(req.UserID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the caller's own profile, creating it on first contact.
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")
	userName := c.GetString("userName")

	profile, err := h.userUsecase.EnsureProfile(c.Request.Context(), userID, userName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}
