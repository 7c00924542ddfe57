package service

import (
	"context"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"
)

// Counts omits Agent for agent callers.
type Counts struct {
	Agent        *int64 `json:"agent,omitempty"`
	AccountCount int64  `json:"accountCount"`
}

type DashboardService interface {
	GetCounts(ctx context.Context, caller models.Identity) (*Counts, error)
}

type dashboardService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
}

func NewDashboardService(userRepo repository.UserRepository, accountRepo repository.AccountRepository) DashboardService {
	return &dashboardService{userRepo: userRepo, accountRepo: accountRepo}
}

func (s *dashboardService) GetCounts(ctx context.Context, caller models.Identity) (*Counts, error) {
	switch {
	case caller.IsAgent():
		n, err := s.accountRepo.CountAccounts(ctx, models.AccountFilter{AgentHolderID: &caller.ID})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		return &Counts{AccountCount: n}, nil
	case caller.IsAdmin():
		agents, err := s.userRepo.CountByRole(ctx, models.RoleAgent)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		accounts, err := s.accountRepo.CountAccounts(ctx, models.AccountFilter{})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		return &Counts{Agent: &agents, AccountCount: accounts}, nil
	default:
		return nil, apperr.Unauthorized("Unauthorized access")
	}
}
