package handlers

import (
	"github.com/gin-gonic/gin"
	"safecircle/middleware"
	"safecircle/utils"
)

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *Handler) GetRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	room, err := h.svc.RoomState(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, room)
}

func (h *Handler) GetMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)

	messages, err := h.svc.History(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, messages)
}

// SendMessage is the HTTP path for chat; a closed room answers 409.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	msg, err := h.svc.SendChat(c.Request.Context(), c.Param("id"), userID, req.Body)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, msg)
}
