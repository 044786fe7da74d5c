package mocks

import (
	"lesson-booking/internal/service"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

var (
	_ service.ReservationService = (*MockReservationService)(nil)
	_ service.TicketService      = (*MockTicketService)(nil)
	_ service.ScheduleService    = (*MockScheduleService)(nil)
	_ service.AttendanceService  = (*MockAttendanceService)(nil)
)
