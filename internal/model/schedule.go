package model

import (
	"time"

	apperrors "lesson-booking/pkg/app_errors"
)

// ScheduleStatus 課程時段狀態
type ScheduleStatus string

const (
	ScheduleStatusUpcoming   ScheduleStatus = "upcoming"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

const MaxScheduleCapacity = 20

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleStatusUpcoming, ScheduleStatusInProgress, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// Start upcoming -> in_progress
func (s ScheduleStatus) Start() (ScheduleStatus, error) {
	if s != ScheduleStatusUpcoming {
		return s, apperrors.ErrInvalidTransition
	}
	return ScheduleStatusInProgress, nil
}

// Complete in_progress -> completed
func (s ScheduleStatus) Complete() (ScheduleStatus, error) {
	if s != ScheduleStatusInProgress {
		return s, apperrors.ErrInvalidTransition
	}
	return ScheduleStatusCompleted, nil
}

// Cancel upcoming -> cancelled
func (s ScheduleStatus) Cancel() (ScheduleStatus, error) {
	if s != ScheduleStatusUpcoming {
		return s, apperrors.ErrInvalidTransition
	}
	return ScheduleStatusCancelled, nil
}

type Schedule struct {
	ID               int            `json:"id" db:"id"`
	LessonID         int            `json:"lesson_id" db:"lesson_id"`
	InstructorID     int            `json:"instructor_id" db:"instructor_id"`
	StartAt          time.Time      `json:"start_at" db:"start_at"`
	EndAt            time.Time      `json:"end_at" db:"end_at"`
	Capacity         int            `json:"capacity" db:"capacity"`
	ReservationCount int            `json:"reservation_count" db:"reservation_count"`
	Status           ScheduleStatus `json:"status" db:"status"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

func (s *Schedule) IsFull() bool {
	return s.ReservationCount >= s.Capacity
}

func (s *Schedule) Available() int {
	if s.IsFull() {
		return 0
	}
	return s.Capacity - s.ReservationCount
}

// CanStart 開課前 window 內才能開始上課
func (s *Schedule) CanStart(now time.Time, window time.Duration) bool {
	return s.Status == ScheduleStatusUpcoming && !now.Before(s.StartAt.Add(-window))
}

// CancellationClosed 開課前 cutoff 內不能再取消
func (s *Schedule) CancellationClosed(now time.Time, cutoff time.Duration) bool {
	return now.After(s.StartAt.Add(-cutoff))
}

// Version 寫入快取時用來判斷新舊
func (s *Schedule) Version() int64 {
	return s.UpdatedAt.UnixMicro()
}

func (s *Schedule) Availability() *Availability {
	return &Availability{
		ScheduleID:       s.ID,
		Capacity:         s.Capacity,
		ReservationCount: s.ReservationCount,
		Available:        s.Available(),
		IsFull:           s.IsFull(),
		Version:          s.Version(),
	}
}

// Availability 空位查詢結果
type Availability struct {
	ScheduleID       int   `json:"schedule_id"`
	Capacity         int   `json:"capacity"`
	ReservationCount int   `json:"reservation_count"`
	Available        int   `json:"available"`
	IsFull           bool  `json:"is_full"`
	Version          int64 `json:"-"`
}

type CreateScheduleRequest struct {
	LessonID     int       `json:"lesson_id" validate:"required,min=1"`
	InstructorID int       `json:"instructor_id" validate:"required,min=1"`
	StartAt      time.Time `json:"start_at" validate:"required"`
	EndAt        time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Capacity     int       `json:"capacity" validate:"required,min=1,max=20"`
}

// UpdateScheduleRequest 整筆覆寫，只允許 upcoming 的時段
type UpdateScheduleRequest struct {
	LessonID     int       `json:"lesson_id" validate:"required,min=1"`
	InstructorID int       `json:"instructor_id" validate:"required,min=1"`
	StartAt      time.Time `json:"start_at" validate:"required"`
	EndAt        time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Capacity     int       `json:"capacity" validate:"required,min=1,max=20"`
}

type ScheduleFilter struct {
	LessonID  *int      `form:"lesson_id"`
	Date      time.Time `form:"date" time_format:"2006-01-02" time_utc:"1"`
	From      time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To        time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
	Status    string    `form:"status"`
	Available *bool     `form:"available"`
	Pagination
}

// InstructorSchedule 講師的課表，附帶未取消的預約
type InstructorSchedule struct {
	*Schedule
	Reservations []*Reservation `json:"reservations"`
	CanStart     bool           `json:"can_start"`
}
