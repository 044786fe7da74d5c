package mocks

import (
	"lesson-booking/internal/repository"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// register 綁定 t，測試結束時自動檢查所有預期呼叫
func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

var (
	_ repository.UserRepository        = (*MockUserRepository)(nil)
	_ repository.ScheduleRepository    = (*MockScheduleRepository)(nil)
	_ repository.TicketRepository      = (*MockTicketRepository)(nil)
	_ repository.ReservationRepository = (*MockReservationRepository)(nil)
)
