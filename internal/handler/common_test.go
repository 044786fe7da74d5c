package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"lesson-booking/internal/handler"
	"lesson-booking/internal/middleware"
	"lesson-booking/internal/model"
	"lesson-booking/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var (
	InvalidJSON = `{"invalid": json}`

	student    = model.Caller{UserID: 1, Role: model.RoleStudent}
	instructor = model.Caller{UserID: 50, Role: model.RoleInstructor}
	staff      = model.Caller{UserID: 99, Role: model.RoleStaff}
)

type testServices struct {
	reservations *mocks.MockReservationService
	tickets      *mocks.MockTicketService
	schedules    *mocks.MockScheduleService
	attendance   *mocks.MockAttendanceService
}

func setupTestRouter(t *testing.T) (*gin.Engine, *testServices) {
	gin.SetMode(gin.TestMode)

	s := &testServices{
		reservations: mocks.NewMockReservationService(t),
		tickets:      mocks.NewMockTicketService(t),
		schedules:    mocks.NewMockScheduleService(t),
		attendance:   mocks.NewMockAttendanceService(t),
	}
	router := handler.NewRouter(handler.Handlers{
		Reservations: handler.NewReservationHandler(s.reservations),
		Tickets:      handler.NewTicketHandler(s.tickets),
		Schedules:    handler.NewScheduleHandler(s.schedules),
		Instructor:   handler.NewInstructorHandler(s.attendance),
	}, testSecret, zap.NewNop())

	return router, s
}

func tokenFor(t *testing.T, caller model.Caller) string {
	t.Helper()
	claims := middleware.Claims{
		Role: string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(caller.UserID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body, authenticated as caller
func createJSONHTTPRequest(t *testing.T, method, url string, data interface{}, caller *model.Caller) *http.Request {
	var body *bytes.Buffer
	if data != nil {
		body = createJSONRequest(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *caller))
	}
	return req
}
