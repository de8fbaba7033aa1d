package metering

import (
	"context"
	"errors"
)

// Result is the outcome of one metering check.
type Result struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	CurrentBalance int    `json:"current_balance"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckAndDecrement spends amount credits for userID, atomically. A non-nil
// error is an infrastructure failure; business rejections come back inside
// Result with Success false.
func (s *Service) CheckAndDecrement(ctx context.Context, userID string, amount int) (Result, error) {
	balance, err := s.repo.CheckAndDecrement(ctx, userID, amount)
	switch {
	case err == nil:
		return Result{Success: true, CurrentBalance: balance}, nil
	case errors.Is(err, ErrInsufficientBalance):
		return Result{Success: false, Error: "insufficient_balance", CurrentBalance: balance}, nil
	case errors.Is(err, ErrProfileNotFound):
		return Result{Success: false, Error: "profile_not_found"}, nil
	default:
		return Result{}, err
	}
}

func (s *Service) Grant(ctx context.Context, userID string, amount int) (int, error) {
	return s.repo.Grant(ctx, userID, amount)
}

func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	return s.repo.Balance(ctx, userID)
}
