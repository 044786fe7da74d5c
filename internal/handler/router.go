package handler

import (
	"lesson-booking/internal/middleware"
	"lesson-booking/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Reservations *ReservationHandler
	Tickets      *TicketHandler
	Schedules    *ScheduleHandler
	Instructor   *InstructorHandler
}

// NewRouter 組裝所有路由；/api/v1 下除了時段查詢之外都要 bearer token
func NewRouter(h Handlers, jwtSecret string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recover(log), middleware.RequestLogger(log))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/v1")
	h.Schedules.RegisterPublicRoutes(public)

	api := r.Group("/api/v1", middleware.Auth(jwtSecret))
	h.Reservations.RegisterRoutes(api)
	h.Tickets.RegisterRoutes(api)
	h.Schedules.RegisterRoutes(api)

	admin := api.Group("/admin", middleware.RequireRole(model.RoleStaff))
	h.Reservations.RegisterAdminRoutes(admin)
	h.Tickets.RegisterAdminRoutes(admin)

	instructor := api.Group("/instructor", middleware.RequireRole(model.RoleInstructor, model.RoleStaff))
	h.Instructor.RegisterRoutes(instructor)

	return r
}
