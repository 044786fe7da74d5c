package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lesson-booking/internal/model"
	apperrors "lesson-booking/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestInstructorRoutes(t *testing.T) {
	t.Run("StudentForbidden", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodGet, "/api/v1/instructor/schedules", nil, &student))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Schedules", func(t *testing.T) {
		router, s := setupTestRouter(t)
		s.attendance.On("InstructorSchedules", mock.Anything, instructor).Return([]*model.InstructorSchedule{
			{Schedule: &model.Schedule{ID: 1}, Reservations: []*model.Reservation{}, CanStart: true},
		}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodGet, "/api/v1/instructor/schedules", nil, &instructor))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"can_start":true`)
	})

	t.Run("StartTooEarly", func(t *testing.T) {
		router, s := setupTestRouter(t)
		s.attendance.On("Start", mock.Anything, instructor, 1).Return(nil, apperrors.ErrTooEarly).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodPost, "/api/v1/instructor/schedules/1/start", nil, &instructor))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Lesson cannot start yet")
	})

	t.Run("MarkAttendance", func(t *testing.T) {
		router, s := setupTestRouter(t)
		body := model.MarkAttendanceRequest{Marks: []model.AttendanceMark{
			{ReservationID: 3, Status: model.ReservationStatusAbsent},
		}}
		s.attendance.On("MarkAttendance", mock.Anything, instructor, 1, body).
			Return(&model.AttendanceSummary{ScheduleID: 1, Absent: 1, Completed: true}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodPost, "/api/v1/instructor/schedules/1/attendance", body, &instructor))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"completed":true`)
	})

	t.Run("CompleteAsStaff", func(t *testing.T) {
		router, s := setupTestRouter(t)
		s.attendance.On("Complete", mock.Anything, staff, 1).
			Return(&model.AttendanceSummary{ScheduleID: 1, Completed: true}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodPost, "/api/v1/instructor/schedules/1/complete", nil, &staff))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPingAndMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodGet, "/ping", nil, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, createJSONHTTPRequest(t, http.MethodGet, "/metrics", nil, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
