package handler

import (
	"lesson-booking/internal/model"
	"lesson-booking/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("tickets", h.ListMine)
	api.GET("tickets/:id", h.Get)
	api.POST("tickets", h.Purchase)
}

func (h *TicketHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("tickets", h.AdminList)
}

// Purchase 模擬購買，不串金流
func (h *TicketHandler) Purchase(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req model.PurchaseTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.service.Purchase(c, caller, req)
	if err != nil {
		handleError(c, err, "PurchaseTicket")
		return
	}
	handleSuccess(c, ticket, http.StatusCreated)
}

func (h *TicketHandler) ListMine(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var page model.Pagination
	if err := BindQuery(c, &page); err != nil {
		return
	}

	tickets, err := h.service.ListMine(c, caller, page)
	if err != nil {
		handleError(c, err, "ListMyTickets")
		return
	}
	handleSuccess(c, tickets, http.StatusOK)
}

func (h *TicketHandler) Get(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	ticket, err := h.service.Get(c, caller, id)
	if err != nil {
		handleError(c, err, "GetTicket")
		return
	}
	handleSuccess(c, ticket, http.StatusOK)
}

func (h *TicketHandler) AdminList(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var filter model.TicketFilter
	if err := BindQuery(c, &filter); err != nil {
		return
	}

	tickets, err := h.service.AdminList(c, caller, filter)
	if err != nil {
		handleError(c, err, "AdminListTickets")
		return
	}
	handleSuccess(c, tickets, http.StatusOK)
}
