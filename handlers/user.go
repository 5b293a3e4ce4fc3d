package handlers

import (
	"github.com/gin-gonic/gin"
	"safecircle/geo"
	"safecircle/middleware"
	"safecircle/utils"
)

type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.svc.Profile(c.Request.Context(), userID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, user)
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	at := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.svc.UpdateLocation(c.Request.Context(), userID, at); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, at)
}
