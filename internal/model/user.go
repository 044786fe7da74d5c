package model

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleStaff      Role = "staff"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleStaff:
		return true
	}
	return false
}

// 累積 3 點違規就停權
const PenaltyThreshold = 3

type User struct {
	ID             int        `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Role           Role       `json:"role" db:"role"`
	PenaltyPoint   int        `json:"penalty_point" db:"penalty_point"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty" db:"suspended_until"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSuspended 停權期間內不能預約
func (u *User) IsSuspended(now time.Time) bool {
	return u.SuspendedUntil != nil && u.SuspendedUntil.After(now)
}

// ApplyPenalty 計算缺席後的點數與停權期限。
// 點數只增不減；停權期限只會延長，不會被縮短。
func ApplyPenalty(points int, suspendedUntil *time.Time, now time.Time, suspensionMonths int) (int, *time.Time) {
	points++
	if points < PenaltyThreshold {
		return points, suspendedUntil
	}

	until := now.AddDate(0, suspensionMonths, 0)
	if suspendedUntil != nil && suspendedUntil.After(until) {
		return points, suspendedUntil
	}
	return points, &until
}

// Caller 由 JWT 解析出的呼叫者身分
type Caller struct {
	UserID int
	Role   Role
}

func (c Caller) IsStaff() bool {
	return c.Role == RoleStaff
}

func (c Caller) IsStudent() bool {
	return c.Role == RoleStudent
}

func (c Caller) IsInstructor() bool {
	return c.Role == RoleInstructor
}
