package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventTicketPurchased      EventType = "ticket.purchased"
	EventScheduleCreated      EventType = "schedule.created"
	EventScheduleStarted      EventType = "schedule.started"
	EventScheduleCompleted    EventType = "schedule.completed"
	EventScheduleCancelled    EventType = "schedule.cancelled"
	EventScheduleUpdated      EventType = "schedule.updated"
	EventAttendanceAbsent     EventType = "attendance.absent"
	EventUserSuspended        EventType = "user.suspended"
)

// DomainEvent commit 後才發送，失敗只記 log
type DomainEvent struct {
	ID            uuid.UUID      `json:"id"`
	Type          EventType      `json:"type"`
	UserID        int            `json:"user_id,omitempty"`
	ScheduleID    int            `json:"schedule_id,omitempty"`
	ReservationID int            `json:"reservation_id,omitempty"`
	TicketID      int            `json:"ticket_id,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Payload       map[string]any `json:"payload,omitempty"`
}

func NewDomainEvent(eventType EventType, occurredAt time.Time) *DomainEvent {
	return &DomainEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: occurredAt,
	}
}

// TouchesSchedule 是否影響時段的空位數
func (e *DomainEvent) TouchesSchedule() bool {
	return e.ScheduleID != 0
}
