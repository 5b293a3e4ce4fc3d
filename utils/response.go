package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"safecircle/apperr"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, kind apperr.Kind, message string) {
	c.JSON(status, Response{Code: status, Message: message, Kind: kind})
}

func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, apperr.KindValidation, message)
}

func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, "", message)
}

func Forbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, apperr.KindForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, apperr.KindNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, "", message)
}

// Error renders an engine error with the status its kind maps to.
func Error(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	}
	if kind == apperr.KindUnknown {
		kind = ""
	}
	fail(c, status, kind, apperr.Message(err))
}
