package handler

import (
	"lesson-booking/internal/model"
	"lesson-booking/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	service service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// RegisterPublicRoutes 不需登入的查詢
func (h *ScheduleHandler) RegisterPublicRoutes(public *gin.RouterGroup) {
	public.GET("schedules", h.List)
	public.GET("schedules/:id", h.Get)
	public.GET("schedules/:id/availability", h.Availability)
}

func (h *ScheduleHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("schedules", h.Create)
	api.PUT("schedules/:id", h.Update)
	api.POST("schedules/:id/cancel", h.Cancel)
	api.DELETE("schedules/:id", h.Delete)
}

func (h *ScheduleHandler) List(c *gin.Context) {
	var filter model.ScheduleFilter
	if err := BindQuery(c, &filter); err != nil {
		return
	}

	schedules, err := h.service.List(c, filter)
	if err != nil {
		handleError(c, err, "ListSchedules")
		return
	}
	handleSuccess(c, schedules, http.StatusOK)
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	schedule, err := h.service.Get(c, id)
	if err != nil {
		handleError(c, err, "GetSchedule")
		return
	}
	handleSuccess(c, schedule, http.StatusOK)
}

func (h *ScheduleHandler) Availability(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	availability, err := h.service.Availability(c, id)
	if err != nil {
		handleError(c, err, "ScheduleAvailability")
		return
	}
	handleSuccess(c, availability, http.StatusOK)
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req model.CreateScheduleRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	schedule, err := h.service.Create(c, caller, req)
	if err != nil {
		handleError(c, err, "CreateSchedule")
		return
	}
	handleSuccess(c, schedule, http.StatusCreated)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	var req model.UpdateScheduleRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	schedule, err := h.service.Update(c, caller, id, req)
	if err != nil {
		handleError(c, err, "UpdateSchedule")
		return
	}
	handleSuccess(c, schedule, http.StatusOK)
}

func (h *ScheduleHandler) Cancel(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	schedule, err := h.service.Cancel(c, caller, id)
	if err != nil {
		handleError(c, err, "CancelSchedule")
		return
	}
	handleSuccess(c, schedule, http.StatusOK)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c, caller, id); err != nil {
		handleError(c, err, "DeleteSchedule")
		return
	}
	handleSuccess(c, nil, http.StatusNoContent)
}
