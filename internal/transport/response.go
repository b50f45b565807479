package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/eventbook/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	count := len(items)
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: items})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message})
}

// writeError maps an error kind to its HTTP status. Unknown errors are logged
// and hidden behind a generic 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, entity.ErrCapacityExceeded),
		errors.Is(err, entity.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
		respondMessage(c, status, "Server error")
		return
	}
	respondMessage(c, status, err.Error())
}

func parseID(c *gin.Context, notFound error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		// a malformed id cannot name an existing record
		writeError(c, notFound)
		return 0, false
	}
	return id, true
}
