package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/limits"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgAccountNotFound      = "Account not found"
	msgAccountExists        = "Account already exists"
	msgInvalidAgent         = "Invalid agent ID provided"
	msgUnauthorizedUpdate   = "Unauthorized to update this account"
	msgUserPasswordRequired = "User password required"
	msgIncorrectPassword    = "Incorrect user password"
)

type CreateAccountInput struct {
	AccountLoginID         string
	AccountPassword        string
	ServerName             string
	Lower                  limits.Patch
	Upper                  limits.Patch
	MessageCheck           *bool
	EmailCheck             *bool
	UpperLimitMessageCheck *bool
	UpperLimitEmailCheck   *bool
	AgentID                string
	Active                 *bool
	UserPassword           string
}

// UpdateAccountInput carries only what the caller sent. Nil pointers and
// untouched patches leave the stored value alone.
type UpdateAccountInput struct {
	AccountLoginID         *string
	ServerName             *string
	Lower                  limits.Patch
	Upper                  limits.Patch
	MessageCheck           *bool
	EmailCheck             *bool
	UpperLimitMessageCheck *bool
	UpperLimitEmailCheck   *bool
	MobileAlert            *bool
	AgentID                *string
	Active                 *bool
	UserPassword           string
}

type ChangeAccountPasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

type MobileAlertChange struct {
	AccountID primitive.ObjectID `json:"accountId"`
	NewStatus bool               `json:"newStatus"`
}

type MobileAlertToggleResult struct {
	UpdatedAccounts int                 `json:"updatedAccounts"`
	Changes         []MobileAlertChange `json:"changes"`
}

type MobileAlertAccount struct {
	ID             primitive.ObjectID `json:"_id"`
	AccountLoginID string             `json:"AccountLoginId"`
	MobileAlert    bool               `json:"mobileAlert"`
}

type MobileAlertSummary struct {
	Account        *MobileAlertAccount `json:"account"`
	RemainingCount int64               `json:"remainingCount"`
}

type MobileAlarmLogView struct {
	ID             primitive.ObjectID `json:"_id"`
	AccountLoginID string             `json:"accountLoginId"`
	AccountDetails struct {
		ServerName      string `json:"serverName,omitempty"`
		AgentHolderName string `json:"agentHolderName,omitempty"`
	} `json:"accountDetails"`
	AgentHolder struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
	} `json:"agentHolder"`
	PreviousStatus    bool      `json:"previousStatus"`
	MobileAlertStatus bool      `json:"mobileAlertStatus"`
	ChangedOn         time.Time `json:"changedOn"`
}

type Pagination struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalLogs   int64 `json:"totalLogs"`
	LogsPerPage int64 `json:"logsPerPage"`
}

type MobileAlarmLogPage struct {
	Logs       []*MobileAlarmLogView `json:"logs"`
	Pagination Pagination            `json:"pagination"`
}

type AccountService interface {
	CreateAccount(ctx context.Context, caller models.Identity, in CreateAccountInput) (*models.Account, error)
	UpdateAccount(ctx context.Context, caller models.Identity, id string, in UpdateAccountInput) (*models.Account, error)
	ChangeAccountPassword(ctx context.Context, caller models.Identity, id string, in ChangeAccountPasswordInput) error
	ListAccounts(ctx context.Context, caller models.Identity) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, caller models.Identity, id string) error
	ToggleAllMobileAlerts(ctx context.Context, caller models.Identity) (*MobileAlertToggleResult, error)
	MobileAlertSummary(ctx context.Context, caller models.Identity) (*MobileAlertSummary, error)
	MobileAlarmLogs(ctx context.Context, caller models.Identity, q models.MobileAlarmQuery) (*MobileAlarmLogPage, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	userRepo    repository.UserRepository
	alarmRepo   repository.MobileAlarmRepository
	notifier    Notifier
	now         func() time.Time
}

func NewAccountService(accountRepo repository.AccountRepository, userRepo repository.UserRepository, alarmRepo repository.MobileAlarmRepository, notifier Notifier) AccountService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &accountService{
		accountRepo: accountRepo,
		userRepo:    userRepo,
		alarmRepo:   alarmRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *accountService) CreateAccount(ctx context.Context, caller models.Identity, in CreateAccountInput) (*models.Account, error) {
	in.AccountLoginID = strings.TrimSpace(in.AccountLoginID)
	in.ServerName = strings.TrimSpace(in.ServerName)
	if in.AccountLoginID == "" || in.AccountPassword == "" || in.ServerName == "" {
		return nil, apperr.Validation("Account login, password and server name are required")
	}

	res, err := limits.Create(in.Lower, in.Upper)
	if err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.GetAccountByLoginID(ctx, in.AccountLoginID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict(msgAccountExists)
	}

	var holder *models.User
	switch {
	case caller.IsAdmin():
		if strings.TrimSpace(in.AgentID) == "" {
			return nil, apperr.Validation("Agent ID must be provided when creating an account for an agent")
		}
		holder, err = s.lookupAgent(ctx, in.AgentID)
		if err != nil {
			return nil, err
		}
		if !holder.Active {
			return nil, apperr.Validation("The assigned agent is inactive and cannot be assigned to a new account")
		}
	case caller.IsAgent():
		holder, err = s.userRepo.GetUserByID(ctx, caller.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if holder == nil {
			return nil, apperr.Unauthorized("Unauthorized to create an account")
		}
	default:
		return nil, apperr.Unauthorized("Unauthorized to create an account")
	}

	active := false
	if in.Active != nil {
		if *in.Active {
			if err := s.confirmCaller(ctx, caller, in.UserPassword); err != nil {
				return nil, err
			}
		}
		active = *in.Active
	}

	siblings, err := s.accountRepo.GetAccounts(ctx, models.AccountFilter{AgentHolderID: &holder.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	hashed, err := auth.HashPassword(in.AccountPassword)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	account := &models.Account{
		AccountLoginID:         in.AccountLoginID,
		AccountPassword:        hashed,
		ServerName:             in.ServerName,
		MessageCheck:           boolOr(in.MessageCheck, true),
		EmailCheck:             boolOr(in.EmailCheck, true),
		UpperLimitMessageCheck: boolOr(in.UpperLimitMessageCheck, true),
		UpperLimitEmailCheck:   boolOr(in.UpperLimitEmailCheck, true),
		MobileAlert:            defaultMobileAlert(siblings),
		AgentHolderID:          holder.ID,
		AgentHolderName:        holder.FullName(),
		Active:                 active,
		DeviceTokens:           append([]string{}, holder.DeviceTokens...),
		CreatedOn:              now,
		CreatedBy:              caller.FirstName,
		UpdatedOn:              now,
		UpdatedBy:              caller.FirstName,
	}
	account.SetLower(res.Lower)
	account.SetUpper(res.Upper)

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict(msgAccountExists)
		}
		return nil, apperr.Internal(err)
	}
	return account, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, caller models.Identity, id string, in UpdateAccountInput) (*models.Account, error) {
	account, err := s.loadAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !caller.Holds(account) {
		return nil, apperr.Unauthorized(msgUnauthorizedUpdate)
	}

	res, err := limits.Merge(account.Limits(), in.Lower, in.Upper)
	if err != nil {
		return nil, err
	}

	upd := &models.AccountUpdate{
		MessageCheck:           in.MessageCheck,
		EmailCheck:             in.EmailCheck,
		UpperLimitMessageCheck: in.UpperLimitMessageCheck,
		UpperLimitEmailCheck:   in.UpperLimitEmailCheck,
		MobileAlert:            in.MobileAlert,
		UpdatedBy:              caller.FirstName,
		UpdatedOn:              s.now(),
	}
	if res.LowerChanged {
		lower := res.Lower
		upd.Lower = &lower
	}
	if res.UpperChanged {
		upper := res.Upper
		upd.Upper = &upper
	}
	if in.ServerName != nil && strings.TrimSpace(*in.ServerName) != "" {
		name := strings.TrimSpace(*in.ServerName)
		upd.ServerName = &name
	}

	if in.AgentID != nil && strings.TrimSpace(*in.AgentID) != "" {
		if !caller.IsAdmin() {
			return nil, apperr.Unauthorized("Only admins can reassign an account")
		}
		agent, err := s.lookupAgent(ctx, *in.AgentID)
		if err != nil {
			return nil, err
		}
		if !agent.Active {
			return nil, apperr.Validation("Cannot update account with an inactive agent")
		}
		if agent.ID != account.AgentHolderID {
			name := agent.FullName()
			upd.AgentHolderID = &agent.ID
			upd.AgentHolderName = &name
			upd.DeviceTokens = append([]string{}, agent.DeviceTokens...)
		}
	}

	if in.AccountLoginID != nil {
		loginID := strings.TrimSpace(*in.AccountLoginID)
		if loginID != "" && loginID != account.AccountLoginID {
			other, err := s.accountRepo.GetAccountByLoginID(ctx, loginID)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			if other != nil {
				return nil, apperr.Conflict(msgAccountExists)
			}
			upd.AccountLoginID = &loginID
		}
	}

	if in.Active != nil {
		if err := s.confirmCaller(ctx, caller, in.UserPassword); err != nil {
			return nil, err
		}
		upd.Active = in.Active
	}

	updated, err := s.accountRepo.UpdateAccount(ctx, account.ID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict(msgAccountExists)
		}
		return nil, apperr.Internal(err)
	}
	if updated == nil {
		return nil, apperr.NotFound(msgAccountNotFound)
	}

	if in.MobileAlert != nil && *in.MobileAlert != account.MobileAlert {
		s.recordMobileToggles(ctx, caller, []*models.Account{account}, []bool{*in.MobileAlert})
	}
	if upd.Active != nil && account.Active && !*upd.Active {
		s.notifier.Publish(&models.Notification{
			Type:           models.NotificationAccountDeactivated,
			AgentID:        updated.AgentHolderID,
			AccountLoginID: updated.AccountLoginID,
			At:             upd.UpdatedOn,
		})
	}
	return updated, nil
}

func (s *accountService) ChangeAccountPassword(ctx context.Context, caller models.Identity, id string, in ChangeAccountPasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return apperr.Validation("All fields are required")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.Validation("New password and confirm password do not match")
	}

	account, err := s.loadAccount(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && !caller.Holds(account) {
		return apperr.Unauthorized(msgUnauthorizedUpdate)
	}

	holder, err := s.userRepo.GetUserByID(ctx, account.AgentHolderID)
	if err != nil {
		return apperr.Internal(err)
	}
	if holder == nil {
		return apperr.Validation("No agent associated with this account")
	}
	if !holder.Active {
		return apperr.Validation("Cannot update password because the associated agent is inactive")
	}
	if !auth.CheckPassword(account.AccountPassword, in.OldPassword) {
		return apperr.Validation("Old password is incorrect")
	}

	hashed, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	updated, err := s.accountRepo.UpdateAccount(ctx, account.ID, &models.AccountUpdate{
		AccountPassword: &hashed,
		UpdatedBy:       caller.FirstName,
		UpdatedOn:       s.now(),
	})
	if err != nil {
		return apperr.Internal(err)
	}
	if updated == nil {
		return apperr.NotFound(msgAccountNotFound)
	}
	return nil
}

func (s *accountService) ListAccounts(ctx context.Context, caller models.Identity) ([]*models.Account, error) {
	var filter models.AccountFilter
	switch {
	case caller.IsAdmin():
	case caller.IsAgent():
		filter.AgentHolderID = &caller.ID
	default:
		return nil, apperr.Unauthorized("Unauthorized access")
	}

	accounts, err := s.accountRepo.GetAccounts(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return accounts, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, caller models.Identity, id string) error {
	account, err := s.loadAccount(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && !caller.Holds(account) {
		return apperr.Unauthorized("Unauthorized to delete this account")
	}

	deleted, err := s.accountRepo.DeleteAccount(ctx, account.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return apperr.NotFound(msgAccountNotFound)
	}
	return nil
}

func (s *accountService) ToggleAllMobileAlerts(ctx context.Context, caller models.Identity) (*MobileAlertToggleResult, error) {
	if !caller.IsAgent() {
		return nil, apperr.Unauthorized("Unauthorized to modify mobile alerts")
	}

	accounts, err := s.accountRepo.GetAccounts(ctx, models.AccountFilter{AgentHolderID: &caller.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(accounts) == 0 {
		return nil, apperr.NotFound("No accounts found for the agent")
	}

	now := s.now()
	result := &MobileAlertToggleResult{Changes: make([]MobileAlertChange, 0, len(accounts))}
	statuses := make([]bool, 0, len(accounts))
	for _, account := range accounts {
		next := !account.MobileAlert
		if err := s.accountRepo.SetMobileAlert(ctx, account.ID, next, caller.FirstName, now); err != nil {
			return nil, apperr.Internal(err)
		}
		statuses = append(statuses, next)
		result.Changes = append(result.Changes, MobileAlertChange{AccountID: account.ID, NewStatus: next})
	}
	result.UpdatedAccounts = len(result.Changes)

	s.recordMobileToggles(ctx, caller, accounts, statuses)
	return result, nil
}

func (s *accountService) MobileAlertSummary(ctx context.Context, caller models.Identity) (*MobileAlertSummary, error) {
	if !caller.IsAgent() {
		return nil, apperr.Unauthorized("Unauthorized to access mobile alert accounts")
	}

	accounts, err := s.accountRepo.GetAccounts(ctx, models.AccountFilter{AgentHolderID: &caller.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	summary := &MobileAlertSummary{}
	if len(accounts) > 0 {
		first := accounts[len(accounts)-1]
		summary.Account = &MobileAlertAccount{
			ID:             first.ID,
			AccountLoginID: first.AccountLoginID,
			MobileAlert:    first.MobileAlert,
		}
		summary.RemainingCount = int64(len(accounts) - 1)
	}
	return summary, nil
}

func (s *accountService) MobileAlarmLogs(ctx context.Context, caller models.Identity, q models.MobileAlarmQuery) (*MobileAlarmLogPage, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized("Unauthorized access. Admin rights required.")
	}
	q.Page, q.Limit = clampAlarmPage(q.Page, q.Limit)

	logs, total, err := s.alarmRepo.FindMobileAlarmLogs(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	accountIDs := make([]primitive.ObjectID, 0, len(logs))
	agentIDs := make([]primitive.ObjectID, 0, len(logs))
	for _, l := range logs {
		accountIDs = append(accountIDs, l.AccountID)
		agentIDs = append(agentIDs, l.AgentHolderID)
	}
	accounts, err := s.accountRepo.GetAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	agents, err := s.userRepo.GetUsersByIDs(ctx, agentIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	accountByID := make(map[primitive.ObjectID]*models.Account, len(accounts))
	for _, a := range accounts {
		accountByID[a.ID] = a
	}
	agentByID := make(map[primitive.ObjectID]*models.User, len(agents))
	for _, u := range agents {
		agentByID[u.ID] = u
	}

	page := &MobileAlarmLogPage{
		Logs: make([]*MobileAlarmLogView, 0, len(logs)),
		Pagination: Pagination{
			CurrentPage: q.Page,
			TotalPages:  (total + q.Limit - 1) / q.Limit,
			TotalLogs:   total,
			LogsPerPage: q.Limit,
		},
	}
	for _, l := range logs {
		view := &MobileAlarmLogView{
			ID:                l.ID,
			AccountLoginID:    l.AccountLoginID,
			PreviousStatus:    l.PreviousStatus,
			MobileAlertStatus: l.MobileAlertStatus,
			ChangedOn:         l.ChangedOn,
		}
		if a, ok := accountByID[l.AccountID]; ok {
			view.AccountDetails.ServerName = a.ServerName
			view.AccountDetails.AgentHolderName = a.AgentHolderName
		}
		if u, ok := agentByID[l.AgentHolderID]; ok {
			view.AgentHolder.Name = u.FullName()
			view.AgentHolder.Email = u.Email
		}
		page.Logs = append(page.Logs, view)
	}
	return page, nil
}

// recordMobileToggles appends history rows and notifies the holders. Failures
// here do not undo the toggle.
func (s *accountService) recordMobileToggles(ctx context.Context, caller models.Identity, accounts []*models.Account, statuses []bool) {
	now := s.now()
	logs := make([]*models.MobileAlarmLog, 0, len(accounts))
	for i, account := range accounts {
		logs = append(logs, &models.MobileAlarmLog{
			AccountID:         account.ID,
			AccountLoginID:    account.AccountLoginID,
			AgentHolderID:     account.AgentHolderID,
			PreviousStatus:    account.MobileAlert,
			MobileAlertStatus: statuses[i],
			ChangedOn:         now,
		})
	}
	if err := s.alarmRepo.SaveMobileAlarmLogs(ctx, logs); err != nil {
		logError(ctx, "failed to record mobile alert history", err, "user", caller.ID.Hex())
	}

	for i, account := range accounts {
		s.notifier.Publish(&models.Notification{
			Type:           models.NotificationMobileAlertToggled,
			AgentID:        account.AgentHolderID,
			AccountLoginID: account.AccountLoginID,
			Data:           map[string]interface{}{"mobileAlert": statuses[i]},
			At:             now,
		})
	}
}

func (s *accountService) loadAccount(ctx context.Context, id string) (*models.Account, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	account, err := s.accountRepo.GetAccountByID(ctx, objID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if account == nil {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	return account, nil
}

func (s *accountService) lookupAgent(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, apperr.Validation(msgInvalidAgent)
	}
	agent, err := s.userRepo.GetUserByID(ctx, objID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil || agent.Role != models.RoleAgent {
		return nil, apperr.Validation(msgInvalidAgent)
	}
	return agent, nil
}

// confirmCaller checks the caller's own password before an activation change.
func (s *accountService) confirmCaller(ctx context.Context, caller models.Identity, password string) error {
	if password == "" {
		return apperr.Validation(msgUserPasswordRequired)
	}
	user, err := s.userRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return apperr.Validation(msgIncorrectPassword)
	}
	return nil
}

// defaultMobileAlert follows the holder's existing accounts: off only when
// every one of them is off.
func defaultMobileAlert(siblings []*models.Account) bool {
	if len(siblings) == 0 {
		return true
	}
	for _, a := range siblings {
		if a.MobileAlert {
			return true
		}
	}
	return false
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

const (
	defaultAlarmLimit = 10
	maxAlarmLimit     = 500
)

// clampAlarmPage keeps (page-1)*limit inside int64.
func clampAlarmPage(page, limit int64) (int64, int64) {
	switch {
	case limit < 1:
		limit = defaultAlarmLimit
	case limit > maxAlarmLimit:
		limit = maxAlarmLimit
	}
	if page < 1 {
		page = 1
	}
	if maxPage := int64(math.MaxInt64 / maxAlarmLimit); page > maxPage {
		page = maxPage
	}
	return page, limit
}
