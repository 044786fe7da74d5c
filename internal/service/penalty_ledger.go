package service

import (
	"context"
	"lesson-booking/internal/clock"
	"lesson-booking/internal/metrics"
	"lesson-booking/internal/model"
	"lesson-booking/internal/repository"

	"github.com/jackc/pgx/v5"
)

// PenaltyLedger 缺席記點，累積到門檻就停權
type PenaltyLedger interface {
	Penalize(ctx context.Context, tx pgx.Tx, userID int) (*model.User, error)
}

type PenaltyLedgerImpl struct {
	users  repository.UserRepository
	clock  clock.Clock
	policy Policy
}

func NewPenaltyLedger(userRepository repository.UserRepository, clk clock.Clock, policy Policy) PenaltyLedger {
	return &PenaltyLedgerImpl{
		users:  userRepository,
		clock:  clk,
		policy: policy,
	}
}

// Penalize 單一 UPDATE 完成加點與停權，規則同 model.ApplyPenalty
func (p *PenaltyLedgerImpl) Penalize(ctx context.Context, tx pgx.Tx, userID int) (*model.User, error) {
	now := p.clock.Now()
	until := now.AddDate(0, p.policy.SuspensionMonths, 0)

	user, err := p.users.ApplyPenalty(ctx, tx, userID, now, until)
	if err != nil {
		return nil, err
	}

	metrics.TrackPenalty(user.PenaltyPoint >= model.PenaltyThreshold)
	return user, nil
}
