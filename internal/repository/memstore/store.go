// Package memstore keeps every repository in process memory. It backs the
// service tests and STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store implements all repository interfaces over plain maps. Records are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	users     map[primitive.ObjectID]*models.User
	accounts  map[primitive.ObjectID]*models.Account
	alerts    map[primitive.ObjectID]*models.AccountAlert
	tradeInfo map[string]*models.TradeAccountInfo
	alarms    []*models.MobileAlarmLog
	logs      []*models.LogEntry
}

var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.AccountRepository     = (*Store)(nil)
	_ repository.AlertRepository       = (*Store)(nil)
	_ repository.TradeInfoRepository   = (*Store)(nil)
	_ repository.MobileAlarmRepository = (*Store)(nil)
	_ repository.LogRepository         = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:     make(map[primitive.ObjectID]*models.User),
		accounts:  make(map[primitive.ObjectID]*models.Account),
		alerts:    make(map[primitive.ObjectID]*models.AccountAlert),
		tradeInfo: make(map[string]*models.TradeAccountInfo),
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.DeviceTokens = cloneStrings(u.DeviceTokens)
	if u.SessionToken != nil {
		t := *u.SessionToken
		c.SessionToken = &t
	}
	return &c
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.DeviceTokens = cloneStrings(a.DeviceTokens)
	c.SetLower(a.Limits().Lower.Clone())
	c.SetUpper(a.Limits().Upper.Clone())
	return &c
}

func addToSet(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func pull(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// Users

func (s *Store) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.DeviceTokens == nil {
		user.DeviceTokens = []string{}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) FindByEmailOrMobile(_ context.Context, email, mobile string, exclude primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == exclude {
			continue
		}
		if (email != "" && u.Email == email) || (mobile != "" && u.Mobile == mobile) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) usersWhere(match func(*models.User) bool) []*models.User {
	out := []*models.User{}
	for _, u := range s.users {
		if match(u) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.After(out[j].CreatedOn) })
	return out
}

func (s *Store) GetUsersByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usersWhere(func(u *models.User) bool { return u.Role == role }), nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.usersWhere(func(u *models.User) bool { return want[u.ID] }), nil
}

func (s *Store) CountByRole(_ context.Context, role models.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateUser(_ context.Context, id primitive.ObjectID, upd *models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if upd.Email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *upd.Email {
				return nil, repository.ErrDuplicateKey
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Mobile != nil {
		u.Mobile = *upd.Mobile
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	u.UpdatedBy = upd.UpdatedBy
	u.UpdatedOn = upd.UpdatedOn
	return cloneUser(u), nil
}

func (s *Store) SetSessionToken(_ context.Context, id primitive.ObjectID, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		if token == nil {
			u.SessionToken = nil
		} else {
			t := *token
			u.SessionToken = &t
		}
	}
	return nil
}

func (s *Store) AddDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.DeviceTokens = addToSet(u.DeviceTokens, token)
	return nil
}

func (s *Store) RemoveDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.DeviceTokens = pull(u.DeviceTokens, token)
	}
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

// Accounts

func (s *Store) loginTaken(loginID string, exclude primitive.ObjectID) bool {
	for _, a := range s.accounts {
		if a.ID != exclude && a.AccountLoginID == loginID {
			return true
		}
	}
	return false
}

func (s *Store) SaveAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loginTaken(account.AccountLoginID, primitive.NilObjectID) {
		return repository.ErrDuplicateKey
	}
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	if account.DeviceTokens == nil {
		account.DeviceTokens = []string{}
	}
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *Store) GetAccountByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, nil
}

func (s *Store) GetAccountByLoginID(_ context.Context, loginID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.AccountLoginID == loginID {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (s *Store) accountsWhere(match func(*models.Account) bool) []*models.Account {
	out := []*models.Account{}
	for _, a := range s.accounts {
		if match(a) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedOn.After(out[j].CreatedOn)
	})
	return out
}

func matchesFilter(a *models.Account, filter models.AccountFilter) bool {
	return filter.AgentHolderID == nil || a.AgentHolderID == *filter.AgentHolderID
}

func (s *Store) GetAccounts(_ context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.accountsWhere(func(a *models.Account) bool { return matchesFilter(a, filter) }), nil
}

func (s *Store) GetAccountsByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.accountsWhere(func(a *models.Account) bool { return want[a.ID] }), nil
}

func (s *Store) CountAccounts(_ context.Context, filter models.AccountFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.accounts {
		if matchesFilter(a, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateAccount(_ context.Context, id primitive.ObjectID, upd *models.AccountUpdate) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	if upd.AccountLoginID != nil {
		if s.loginTaken(*upd.AccountLoginID, id) {
			return nil, repository.ErrDuplicateKey
		}
		a.AccountLoginID = *upd.AccountLoginID
	}
	if upd.AccountPassword != nil {
		a.AccountPassword = *upd.AccountPassword
	}
	if upd.ServerName != nil {
		a.ServerName = *upd.ServerName
	}
	if upd.Lower != nil {
		a.SetLower(upd.Lower.Clone())
	}
	if upd.Upper != nil {
		a.SetUpper(upd.Upper.Clone())
	}
	if upd.MessageCheck != nil {
		a.MessageCheck = *upd.MessageCheck
	}
	if upd.EmailCheck != nil {
		a.EmailCheck = *upd.EmailCheck
	}
	if upd.UpperLimitMessageCheck != nil {
		a.UpperLimitMessageCheck = *upd.UpperLimitMessageCheck
	}
	if upd.UpperLimitEmailCheck != nil {
		a.UpperLimitEmailCheck = *upd.UpperLimitEmailCheck
	}
	if upd.MobileAlert != nil {
		a.MobileAlert = *upd.MobileAlert
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}
	if upd.AgentHolderID != nil {
		a.AgentHolderID = *upd.AgentHolderID
	}
	if upd.AgentHolderName != nil {
		a.AgentHolderName = *upd.AgentHolderName
	}
	if upd.DeviceTokens != nil {
		a.DeviceTokens = cloneStrings(upd.DeviceTokens)
	}
	a.UpdatedBy = upd.UpdatedBy
	a.UpdatedOn = upd.UpdatedOn
	return cloneAccount(a), nil
}

func (s *Store) SetMobileAlert(_ context.Context, id primitive.ObjectID, value bool, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[id]; ok {
		a.MobileAlert = value
		a.UpdatedBy = by
		a.UpdatedOn = at
	}
	return nil
}

func (s *Store) DeactivateByAgent(_ context.Context, agentID primitive.ObjectID, by string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.accounts {
		if a.AgentHolderID != agentID {
			continue
		}
		if a.Active {
			n++
		}
		a.Active = false
		a.UpdatedBy = by
		a.UpdatedOn = at
	}
	return n, nil
}

func (s *Store) eachHeldBy(agentID primitive.ObjectID, fn func(*models.Account)) {
	for _, a := range s.accounts {
		if a.AgentHolderID == agentID {
			fn(a)
		}
	}
}

func (s *Store) RenameHolder(_ context.Context, agentID primitive.ObjectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eachHeldBy(agentID, func(a *models.Account) { a.AgentHolderName = name })
	return nil
}

func (s *Store) AddDeviceTokenByAgent(_ context.Context, agentID primitive.ObjectID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eachHeldBy(agentID, func(a *models.Account) { a.DeviceTokens = addToSet(a.DeviceTokens, token) })
	return nil
}

func (s *Store) RemoveDeviceTokenByAgent(_ context.Context, agentID primitive.ObjectID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eachHeldBy(agentID, func(a *models.Account) { a.DeviceTokens = pull(a.DeviceTokens, token) })
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	return true, nil
}

func (s *Store) LoginIDsByAgent(_ context.Context, agentID primitive.ObjectID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	s.eachHeldBy(agentID, func(a *models.Account) { ids = append(ids, a.AccountLoginID) })
	sort.Strings(ids)
	return ids, nil
}

// Alerts and trade info. The external evaluator owns these collections; PutAlert
// and PutTradeInfo stand in for it.

func (s *Store) PutAlert(alert *models.AccountAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	c := *alert
	s.alerts[alert.ID] = &c
}

func (s *Store) PutTradeInfo(info *models.TradeAccountInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info.ID.IsZero() {
		info.ID = primitive.NewObjectID()
	}
	c := *info
	s.tradeInfo[info.AccountLoginID] = &c
}

func (s *Store) GetAlertByID(_ context.Context, id primitive.ObjectID) (*models.AccountAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.alerts[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetAlertByLoginID(_ context.Context, loginID string) (*models.AccountAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.AccountLoginID == loginID {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func inSet(loginIDs []string) func(string) bool {
	if loginIDs == nil {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(loginIDs))
	for _, id := range loginIDs {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func (s *Store) GetAlerts(_ context.Context, loginIDs []string) ([]*models.AccountAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := inSet(loginIDs)
	out := []*models.AccountAlert{}
	for _, a := range s.alerts {
		if want(a.AccountLoginID) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AlertOn.After(out[j].AlertOn) })
	return out, nil
}

func (s *Store) AcknowledgeAlert(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok || !a.AlertFlag {
		return false, nil
	}
	a.AlertFlag = false
	a.AlertOff = at
	a.LastChecked = at
	return true, nil
}

func (s *Store) GetTradeInfoByLoginID(_ context.Context, loginID string) (*models.TradeAccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tradeInfo[loginID]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetTradeInfos(_ context.Context, loginIDs []string) ([]*models.TradeAccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := inSet(loginIDs)
	out := []*models.TradeAccountInfo{}
	for _, t := range s.tradeInfo {
		if want(t.AccountLoginID) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdatedTime.After(out[j].LastUpdatedTime) })
	return out, nil
}

// Mobile alarm history

func (s *Store) SaveMobileAlarmLogs(_ context.Context, logs []*models.MobileAlarmLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range logs {
		if l.ID.IsZero() {
			l.ID = primitive.NewObjectID()
		}
		c := *l
		s.alarms = append(s.alarms, &c)
	}
	return nil
}

func (s *Store) FindMobileAlarmLogs(_ context.Context, q models.MobileAlarmQuery) ([]*models.MobileAlarmLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	cutoff := time.Now().Add(-models.MobileAlarmRetention)
	matched := []*models.MobileAlarmLog{}
	for _, l := range s.alarms {
		switch {
		case l.ChangedOn.Before(cutoff):
		case search != "" && !strings.Contains(strings.ToLower(l.AccountLoginID), search):
		case q.Status != nil && l.MobileAlertStatus != *q.Status:
		case q.StartDate != nil && l.ChangedOn.Before(*q.StartDate):
		case q.EndDate != nil && l.ChangedOn.After(*q.EndDate):
		default:
			c := *l
			matched = append(matched, &c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ChangedOn.After(matched[j].ChangedOn) })

	total := int64(len(matched))
	start, end := total, total
	if q.Page >= 1 && q.Limit >= 1 && q.Page-1 <= total/q.Limit {
		start = min((q.Page-1)*q.Limit, total)
	}
	if q.Limit >= 1 && q.Limit < total-start {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

// Audit log

func (s *Store) SaveLog(_ context.Context, log *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.ID = primitive.NewObjectID()
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	c := *log
	s.logs = append(s.logs, &c)
	return nil
}

func (s *Store) logPage(match func(*models.LogEntry) bool, page, limit int) []*models.LogEntry {
	matched := []*models.LogEntry{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		if match(s.logs[i]) {
			c := *s.logs[i]
			matched = append(matched, &c)
		}
	}
	start := (page - 1) * limit
	if start > len(matched) {
		return []*models.LogEntry{}
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end]
}

func (s *Store) GetAllLogs(_ context.Context, page, limit int) ([]*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.logPage(func(*models.LogEntry) bool { return true }, page, limit), nil
}

func (s *Store) GetLogsByUserID(_ context.Context, userID primitive.ObjectID, page, limit int) ([]*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.logPage(func(l *models.LogEntry) bool { return l.UserID == userID }, page, limit), nil
}
