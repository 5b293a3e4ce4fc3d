package handlers

import (
	"github.com/gin-gonic/gin"
	"safecircle/emergency"
)

type Handler struct {
	svc *emergency.Service
}

func New(svc *emergency.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the REST API on r behind auth.
func (h *Handler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	alerts := r.Group("/api/alerts")
	alerts.Use(auth)
	{
		alerts.GET("", h.ListAlerts)
		alerts.POST("", h.CreateAlert)
		alerts.POST("/mark-safe", h.MarkSafe)
		alerts.GET("/:id", h.GetAlert)
		alerts.PUT("/:id/resolve", h.ResolveAlert)
		alerts.POST("/:id/respond", h.RespondToAlert)
	}

	rooms := r.Group("/api/rooms")
	rooms.Use(auth)
	{
		rooms.GET("/:id", h.GetRoom)
		rooms.GET("/:id/messages", h.GetMessages)
		rooms.POST("/:id/messages", h.SendMessage)
	}

	users := r.Group("/api/users")
	users.Use(auth)
	{
		users.GET("/me", h.GetCurrentUser)
		users.POST("/me/location", h.UpdateLocation)
	}

	friends := r.Group("/api/friends")
	friends.Use(auth)
	{
		friends.GET("", h.GetFriends)
		friends.GET("/requests", h.GetFriendRequests)
		friends.POST("/request", h.SendFriendRequest)
		friends.POST("/accept/:user_id", h.AcceptFriendRequest)
		friends.POST("/decline/:user_id", h.DeclineFriendRequest)
		friends.DELETE("/:user_id", h.DeleteFriend)
	}
}
