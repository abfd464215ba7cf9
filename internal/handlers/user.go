package handlers

import (
	"net/http"

	"broadcast/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Create - 创建或更新本地用户 POST /users/create-user
func (h *UserHandler) Create(c *gin.Context) {
	var in services.UpsertUserInput
	if !bind(c, &in) {
		return
	}
	user, created, err := h.users.Upsert(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": user, "message": "User created"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "message": "User updated"})
}

func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var in services.LocationInput
	if !bind(c, &in) {
		return
	}
	user, err := h.users.UpdateLocation(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateImage(c *gin.Context) {
	var body struct {
		ClerkID string `json:"clerkId"`
		Image   string `json:"image"`
	}
	if !bind(c, &body) {
		return
	}
	user, err := h.users.UpdateImage(c.Request.Context(), body.ClerkID, body.Image)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("clerkId"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Scope - 用户默认的地理范围及其房间
func (h *UserHandler) Scope(c *gin.Context) {
	scope, err := h.users.DefaultScope(c.Request.Context(), c.Param("clerkId"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"levelType":  scope.LevelType,
		"levelValue": scope.LevelValue,
		"room":       scope.Room(),
	})
}

// RequestVerification POST /verify {email}
func (h *UserHandler) RequestVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if !bind(c, &body) {
		return
	}
	if err := h.users.RequestVerification(c.Request.Context(), body.Email); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification request sent"})
}

// Verify GET /verify/:token
func (h *UserHandler) Verify(c *gin.Context) {
	if _, err := h.users.Verify(c.Request.Context(), c.Param("token")); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User verified successfully"})
}
