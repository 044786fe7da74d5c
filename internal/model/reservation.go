package model

import (
	"time"

	apperrors "lesson-booking/pkg/app_errors"
)

// ReservationStatus 預約狀態
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusAttended  ReservationStatus = "attended"
	ReservationStatusAbsent    ReservationStatus = "absent"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusReserved, ReservationStatusCancelled, ReservationStatusAttended, ReservationStatusAbsent:
		return true
	}
	return false
}

func (s ReservationStatus) Cancel() (ReservationStatus, error) {
	if s != ReservationStatusReserved {
		return s, apperrors.ErrAlreadyCancelled
	}
	return ReservationStatusCancelled, nil
}

func (s ReservationStatus) Attend() (ReservationStatus, error) {
	if s != ReservationStatusReserved {
		return s, apperrors.ErrInvalidTransition
	}
	return ReservationStatusAttended, nil
}

func (s ReservationStatus) MarkAbsent() (ReservationStatus, error) {
	if s != ReservationStatusReserved {
		return s, apperrors.ErrInvalidTransition
	}
	return ReservationStatusAbsent, nil
}

type Reservation struct {
	ID          int               `json:"id" db:"id"`
	UserID      int               `json:"user_id" db:"user_id"`
	ScheduleID  int               `json:"schedule_id" db:"schedule_id"`
	TicketID    int               `json:"ticket_id" db:"ticket_id"`
	Status      ReservationStatus `json:"status" db:"status"`
	ReservedAt  time.Time         `json:"reserved_at" db:"reserved_at"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`

	Schedule *Schedule `json:"schedule,omitempty" db:"-"`
}

type CreateReservationRequest struct {
	ScheduleID int `json:"schedule_id" validate:"required,min=1"`
}

type ReservationFilter struct {
	ScheduleID *int   `form:"schedule_id"`
	Status     string `form:"status"`
	Pagination
}

// AttendanceMark 單筆出缺席紀錄
type AttendanceMark struct {
	ReservationID int               `json:"reservation_id" validate:"required,min=1"`
	Status        ReservationStatus `json:"status" validate:"required,oneof=attended absent"`
}

type MarkAttendanceRequest struct {
	Marks []AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}

// AttendanceSummary 點名結果
type AttendanceSummary struct {
	ScheduleID     int   `json:"schedule_id"`
	Attended       int   `json:"attended"`
	Absent         int   `json:"absent"`
	Skipped        int   `json:"skipped"`
	Completed      bool  `json:"completed"`
	SuspendedUsers []int `json:"suspended_users,omitempty"`
}
