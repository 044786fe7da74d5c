package handler

import (
	"lesson-booking/internal/model"
	"lesson-booking/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service service.ReservationService
}

func NewReservationHandler(service service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("reservations", h.ListMine)
	api.POST("reservations", h.Create)
	api.DELETE("reservations/:id", h.Cancel)
}

func (h *ReservationHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("reservations", h.AdminList)
}

func (h *ReservationHandler) Create(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	reservation, err := h.service.Create(c, caller, req)
	if err != nil {
		handleError(c, err, "CreateReservation")
		return
	}

	handleSuccess(c, reservation, http.StatusCreated)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	reservation, err := h.service.Cancel(c, caller, id)
	if err != nil {
		handleError(c, err, "CancelReservation")
		return
	}

	handleSuccess(c, reservation, http.StatusOK)
}

func (h *ReservationHandler) ListMine(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var page model.Pagination
	if err := BindQuery(c, &page); err != nil {
		return
	}

	reservations, err := h.service.ListMine(c, caller, page)
	if err != nil {
		handleError(c, err, "ListMyReservations")
		return
	}

	handleSuccess(c, reservations, http.StatusOK)
}

func (h *ReservationHandler) AdminList(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var filter model.ReservationFilter
	if err := BindQuery(c, &filter); err != nil {
		return
	}

	reservations, err := h.service.AdminList(c, caller, filter)
	if err != nil {
		handleError(c, err, "AdminListReservations")
		return
	}

	handleSuccess(c, reservations, http.StatusOK)
}
