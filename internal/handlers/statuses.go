package handlers

import (
	"net/http"

	"broadcast/internal/geo"
	"broadcast/internal/services"

	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	statuses *services.StatusService
}

func NewStatusHandler(statuses *services.StatusService) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

func (h *StatusHandler) List(c *gin.Context) {
	scope := geo.NewScope(c.Query("levelType"), c.Query("levelValue"))
	list, err := h.statuses.ListStatuses(c.Request.Context(), scope)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StatusHandler) Create(c *gin.Context) {
	var in services.CreateStatusInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)

	status, err := h.statuses.CreateStatus(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}

func (h *StatusHandler) Like(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	res, err := h.statuses.ToggleStatusLike(c.Request.Context(), c.Param("id"), requester(c, body.UserID))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *StatusHandler) Delete(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	if err := h.statuses.DeleteStatus(c.Request.Context(), c.Param("id"), requester(c, body.UserID)); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status deleted successfully"})
}
