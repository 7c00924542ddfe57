package service

import (
	"context"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgAssociatedAccountNotFound = "Associated account not found"

// AlertService answers queries over the records the external evaluator writes
// and lets agents acknowledge raised alerts.
type AlertService interface {
	GetAlert(ctx context.Context, caller models.Identity, loginID string) (*models.AccountAlert, error)
	ListAlerts(ctx context.Context, caller models.Identity) ([]*models.AccountAlert, error)
	GetTradeInfo(ctx context.Context, caller models.Identity, loginID string) (*models.TradeAccountInfo, error)
	ListTradeInfo(ctx context.Context, caller models.Identity) ([]*models.TradeAccountInfo, error)
	AcknowledgeAlert(ctx context.Context, caller models.Identity, id string) (*models.AccountAlert, error)
}

type alertService struct {
	alertRepo     repository.AlertRepository
	tradeInfoRepo repository.TradeInfoRepository
	accountRepo   repository.AccountRepository
	notifier      Notifier
	now           func() time.Time
}

func NewAlertService(alertRepo repository.AlertRepository, tradeInfoRepo repository.TradeInfoRepository, accountRepo repository.AccountRepository, notifier Notifier) AlertService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &alertService{
		alertRepo:     alertRepo,
		tradeInfoRepo: tradeInfoRepo,
		accountRepo:   accountRepo,
		notifier:      notifier,
		now:           time.Now,
	}
}

// visibleAccount loads the account behind loginID and checks the caller may see it.
func (s *alertService) visibleAccount(ctx context.Context, caller models.Identity, loginID, denied string) (*models.Account, error) {
	account, err := s.accountRepo.GetAccountByLoginID(ctx, loginID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if account == nil {
		return nil, apperr.NotFound(msgAssociatedAccountNotFound)
	}
	if !caller.IsAdmin() && !caller.Holds(account) {
		return nil, apperr.Unauthorized(denied)
	}
	return account, nil
}

// scope returns nil for admins, meaning every login id, and the caller's own
// login ids for agents.
func (s *alertService) scope(ctx context.Context, caller models.Identity) ([]string, error) {
	switch {
	case caller.IsAdmin():
		return nil, nil
	case caller.IsAgent():
		ids, err := s.accountRepo.LoginIDsByAgent(ctx, caller.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		return ids, nil
	default:
		return nil, apperr.Unauthorized("Unauthorized access")
	}
}

func (s *alertService) GetAlert(ctx context.Context, caller models.Identity, loginID string) (*models.AccountAlert, error) {
	if _, err := s.visibleAccount(ctx, caller, loginID, "Unauthorized to access this account alert"); err != nil {
		return nil, err
	}
	alert, err := s.alertRepo.GetAlertByLoginID(ctx, loginID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if alert == nil {
		return nil, apperr.NotFound("Account alert not found")
	}
	return alert, nil
}

func (s *alertService) ListAlerts(ctx context.Context, caller models.Identity) ([]*models.AccountAlert, error) {
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	alerts, err := s.alertRepo.GetAlerts(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return alerts, nil
}

func (s *alertService) GetTradeInfo(ctx context.Context, caller models.Identity, loginID string) (*models.TradeAccountInfo, error) {
	if _, err := s.visibleAccount(ctx, caller, loginID, "Unauthorized to access this trade account info"); err != nil {
		return nil, err
	}
	info, err := s.tradeInfoRepo.GetTradeInfoByLoginID(ctx, loginID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if info == nil {
		return nil, apperr.NotFound("Trade account info not found")
	}
	return info, nil
}

func (s *alertService) ListTradeInfo(ctx context.Context, caller models.Identity) ([]*models.TradeAccountInfo, error) {
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	infos, err := s.tradeInfoRepo.GetTradeInfos(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return infos, nil
}

func (s *alertService) AcknowledgeAlert(ctx context.Context, caller models.Identity, id string) (*models.AccountAlert, error) {
	if !caller.IsAgent() {
		return nil, apperr.Unauthorized("Only agents can update account alerts")
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("Account alert not found")
	}
	alert, err := s.alertRepo.GetAlertByID(ctx, objID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if alert == nil {
		return nil, apperr.NotFound("Account alert not found")
	}
	account, err := s.visibleAccount(ctx, caller, alert.AccountLoginID, "Unauthorized to update this account's alert")
	if err != nil {
		return nil, err
	}
	if !alert.AlertFlag {
		return nil, apperr.Validation("Alert flag is already false")
	}

	now := s.now()
	changed, err := s.alertRepo.AcknowledgeAlert(ctx, objID, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !changed {
		// Cleared by someone else between the read and the write.
		return nil, apperr.Validation("Alert flag is already false")
	}

	alert.AlertFlag = false
	alert.AlertOff = now
	alert.LastChecked = now
	s.notifier.Publish(&models.Notification{
		Type:           models.NotificationAlertCleared,
		AgentID:        account.AgentHolderID,
		AccountLoginID: account.AccountLoginID,
		At:             now,
	})
	return alert, nil
}
