package handler

import (
	"errors"
	"lesson-booking/internal/middleware"
	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"
	"lesson-booking/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

type idUri struct {
	ID int `uri:"id" binding:"required,min=1"`
}

func bindID(c *gin.Context) (int, bool) {
	var uri idUri
	if err := BindUri(c, &uri); err != nil {
		return 0, false
	}
	return uri.ID, true
}

// callerOf 未經 Auth 的路由拿不到呼叫者，直接 401
func callerOf(c *gin.Context) (model.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return model.Caller{}, false
	}
	return caller, true
}

type errorMapping struct {
	target  error
	status  int
	message string
}

// 由上而下比對，較具體的錯誤放前面
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
	{apperrors.ErrScheduleNotFound, http.StatusNotFound, "Schedule not found"},
	{apperrors.ErrReservationNotFound, http.StatusNotFound, "Reservation not found"},
	{apperrors.ErrTicketNotFound, http.StatusNotFound, "Ticket not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{apperrors.ErrNotFound, http.StatusNotFound, "Not found"},
	{apperrors.ErrNotOwner, http.StatusForbidden, "Not the reservation owner"},
	{apperrors.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{apperrors.ErrScheduleFull, http.StatusConflict, "Schedule is full"},
	{apperrors.ErrDuplicateReservation, http.StatusConflict, "Schedule already reserved"},
	{apperrors.ErrInsufficientTicket, http.StatusConflict, "Ticket was used concurrently"},
	{apperrors.ErrConflict, http.StatusConflict, "Conflict"},
	{apperrors.ErrSuspended, http.StatusUnprocessableEntity, "User is suspended"},
	{apperrors.ErrNoValidTicket, http.StatusUnprocessableEntity, "No valid ticket"},
	{apperrors.ErrAlreadyCancelled, http.StatusUnprocessableEntity, "Reservation already cancelled"},
	{apperrors.ErrCancellationClosed, http.StatusUnprocessableEntity, "Cancellation window closed"},
	{apperrors.ErrTooEarly, http.StatusUnprocessableEntity, "Lesson cannot start yet"},
	{apperrors.ErrInvalidTransition, http.StatusUnprocessableEntity, "Invalid status transition"},
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			log.Warn(m.message)
			c.JSON(m.status, gin.H{
				"error": m.message,
			})
			return
		}
	}

	log.Error("Unexpected error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
