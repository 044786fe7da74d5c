package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketPlan 票券方案
type TicketPlan string

const (
	TicketPlanSingle TicketPlan = "single"
	TicketPlanFive   TicketPlan = "five"
	TicketPlanTen    TicketPlan = "ten"
)

type planSpec struct {
	uses  int
	price decimal.Decimal
}

var plans = map[TicketPlan]planSpec{
	TicketPlanSingle: {uses: 1, price: decimal.NewFromInt(3000)},
	TicketPlanFive:   {uses: 5, price: decimal.NewFromInt(13500)},
	TicketPlanTen:    {uses: 10, price: decimal.NewFromInt(25000)},
}

func (p TicketPlan) IsValid() bool {
	_, ok := plans[p]
	return ok
}

// Uses 方案可使用次數
func (p TicketPlan) Uses() int {
	return plans[p].uses
}

// Price 模擬售價（日圓）
func (p TicketPlan) Price() decimal.Decimal {
	return plans[p].price
}

// Ticket 使用者持有的回數券
type Ticket struct {
	ID             int             `json:"id" db:"id"`
	UserID         int             `json:"user_id" db:"user_id"`
	Plan           TicketPlan      `json:"plan" db:"plan"`
	RemainingCount int             `json:"remaining_count" db:"remaining_count"`
	PricePaid      decimal.Decimal `json:"price_paid" db:"price_paid"`
	PurchasedAt    time.Time       `json:"purchased_at" db:"purchased_at"`
	ExpiresAt      time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

func (t *Ticket) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsable 未過期且仍有剩餘次數
func (t *Ticket) IsUsable(now time.Time) bool {
	return !t.IsExpired(now) && t.RemainingCount > 0
}

// NewTicket 依方案建立新票券
func NewTicket(userID int, plan TicketPlan, now time.Time, validMonths int) *Ticket {
	return &Ticket{
		UserID:         userID,
		Plan:           plan,
		RemainingCount: plan.Uses(),
		PricePaid:      plan.Price(),
		PurchasedAt:    now,
		ExpiresAt:      now.AddDate(0, validMonths, 0),
	}
}

type PurchaseTicketRequest struct {
	Plan TicketPlan `json:"plan" validate:"required,oneof=single five ten"`
}

type TicketFilter struct {
	UserID    *int   `form:"user_id"`
	Plan      string `form:"plan"`
	ValidOnly bool   `form:"valid_only"`
	Pagination
}
