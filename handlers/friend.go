package handlers

import (
	"github.com/gin-gonic/gin"
	"safecircle/middleware"
	"safecircle/models"
	"safecircle/utils"
)

type FriendRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) GetFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)

	friends, err := h.svc.Friends(c.Request.Context(), userID, models.FriendAccepted)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, friends)
}

func (h *Handler) GetFriendRequests(c *gin.Context) {
	userID := middleware.GetUserID(c)

	requests, err := h.svc.Friends(c.Request.Context(), userID, models.FriendPending)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, requests)
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	status, err := h.svc.RequestFriend(c.Request.Context(), userID, req.UserID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, gin.H{"user_id": req.UserID, "status": status})
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	h.respondFriend(c, true)
}

func (h *Handler) DeclineFriendRequest(c *gin.Context) {
	h.respondFriend(c, false)
}

func (h *Handler) respondFriend(c *gin.Context, accept bool) {
	userID := middleware.GetUserID(c)
	friendID := c.Param("user_id")

	if err := h.svc.RespondFriend(c.Request.Context(), userID, friendID, accept); err != nil {
		utils.Error(c, err)
		return
	}

	status := models.FriendDeclined
	if accept {
		status = models.FriendAccepted
	}
	utils.Success(c, gin.H{"user_id": friendID, "status": status})
}

func (h *Handler) DeleteFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.svc.RemoveFriend(c.Request.Context(), userID, c.Param("user_id")); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
