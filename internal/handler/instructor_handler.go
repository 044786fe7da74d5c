package handler

import (
	"lesson-booking/internal/model"
	"lesson-booking/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type InstructorHandler struct {
	service service.AttendanceService
}

func NewInstructorHandler(service service.AttendanceService) *InstructorHandler {
	return &InstructorHandler{service: service}
}

func (h *InstructorHandler) RegisterRoutes(instructor *gin.RouterGroup) {
	instructor.GET("schedules", h.Schedules)
	instructor.POST("schedules/:id/start", h.Start)
	instructor.POST("schedules/:id/attendance", h.MarkAttendance)
	instructor.POST("schedules/:id/complete", h.Complete)
}

func (h *InstructorHandler) Schedules(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	schedules, err := h.service.InstructorSchedules(c, caller)
	if err != nil {
		handleError(c, err, "InstructorSchedules")
		return
	}
	handleSuccess(c, schedules, http.StatusOK)
}

func (h *InstructorHandler) Start(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	schedule, err := h.service.Start(c, caller, id)
	if err != nil {
		handleError(c, err, "StartLesson")
		return
	}
	handleSuccess(c, schedule, http.StatusOK)
}

func (h *InstructorHandler) MarkAttendance(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	var req model.MarkAttendanceRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	summary, err := h.service.MarkAttendance(c, caller, id, req)
	if err != nil {
		handleError(c, err, "MarkAttendance")
		return
	}
	handleSuccess(c, summary, http.StatusOK)
}

func (h *InstructorHandler) Complete(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	summary, err := h.service.Complete(c, caller, id)
	if err != nil {
		handleError(c, err, "CompleteLesson")
		return
	}
	handleSuccess(c, summary, http.StatusOK)
}
