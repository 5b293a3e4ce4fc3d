package handlers

import (
	"github.com/gin-gonic/gin"
	"safecircle/emergency"
	"safecircle/geo"
	"safecircle/middleware"
	"safecircle/utils"
)

type CreateAlertRequest struct {
	Type     string     `json:"type" binding:"required"`
	Details  string     `json:"details"`
	Location *geo.Point `json:"location" binding:"required"`
}

type RespondRequest struct {
	ServiceType string `json:"service_type" binding:"required"`
	ServiceName string `json:"service_name" binding:"required"`
}

func (h *Handler) CreateAlert(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), emergency.AlertRequest{
		Type:     req.Type,
		Details:  req.Details,
		Location: *req.Location,
		RaiserID: userID,
	})
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, res)
}

func (h *Handler) MarkSafe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	res, err := h.svc.MarkSafe(c.Request.Context(), userID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, res)
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	if err := h.svc.ResolveAlert(c.Request.Context(), c.Param("id")); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, gin.H{"alert_id": c.Param("id"), "resolved": true})
}

// ListAlerts serves the dashboard list, filtered by ?status=active|resolved,
// ?type= and ?search=.
func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.svc.ListAlerts(c.Request.Context(), emergency.AlertQuery{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Search: c.Query("search"),
	})
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, alerts)
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.svc.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, alert)
}

func (h *Handler) RespondToAlert(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	res, err := h.svc.RespondToAlert(c.Request.Context(), c.Param("id"), req.ServiceType, req.ServiceName)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, res)
}
