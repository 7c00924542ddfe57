package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgAgentNotFound     = "Agent not found"
	msgAdminsOnly        = "Only admins can manage agents"
	msgPasswordsMismatch = "New password and confirm password do not match"
)

// CreateUserInput is shared by agent and admin creation.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
	Active    *bool
}

func (in *CreateUserInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Mobile = strings.TrimSpace(in.Mobile)
}

func (in CreateUserInput) complete() bool {
	return in.FirstName != "" && in.LastName != "" && in.Email != "" && in.Mobile != "" && in.Password != ""
}

type UpdateAgentInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Mobile    *string
	Password  *string
	Active    *bool
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

type AgentService interface {
	CreateAgent(ctx context.Context, caller models.Identity, in CreateUserInput) (*models.User, error)
	UpdateAgent(ctx context.Context, caller models.Identity, id string, in UpdateAgentInput) (*models.User, error)
	UpdateAgentPassword(ctx context.Context, caller models.Identity, id string, in ChangePasswordInput) error
	DeleteAgent(ctx context.Context, caller models.Identity, id string) error
	GetAgents(ctx context.Context, caller models.Identity) ([]*models.User, error)
}

type agentService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	notifier    Notifier
	now         func() time.Time
}

func NewAgentService(userRepo repository.UserRepository, accountRepo repository.AccountRepository, notifier Notifier) AgentService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &agentService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *agentService) CreateAgent(ctx context.Context, caller models.Identity, in CreateUserInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized(msgAdminsOnly)
	}
	in.normalize()
	if !in.complete() {
		return nil, apperr.Validation("First name, last name, email, mobile, and password are required")
	}

	existing, err := s.userRepo.FindByEmailOrMobile(ctx, in.Email, in.Mobile, primitive.NilObjectID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		if existing.Email == in.Email {
			return nil, apperr.Conflict("Agent with this email already exists")
		}
		return nil, apperr.Conflict("Agent with this mobile number already exists")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	agent := &models.User{
		Role:         models.RoleAgent,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Mobile:       in.Mobile,
		Password:     hashed,
		Active:       boolOr(in.Active, true),
		DeviceTokens: []string{},
		CreatedOn:    now,
		CreatedBy:    caller.FirstName,
		UpdatedOn:    now,
		UpdatedBy:    caller.FirstName,
	}
	if err := s.userRepo.SaveUser(ctx, agent); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict("Agent with this email already exists")
		}
		return nil, apperr.Internal(err)
	}
	return agent, nil
}

func (s *agentService) UpdateAgent(ctx context.Context, caller models.Identity, id string, in UpdateAgentInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized(msgAdminsOnly)
	}
	agent, err := s.loadAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := &models.UserUpdate{
		FirstName: nonEmpty(in.FirstName),
		LastName:  nonEmpty(in.LastName),
		Mobile:    nonEmpty(in.Mobile),
		Active:    in.Active,
		UpdatedBy: caller.FirstName,
		UpdatedOn: s.now(),
	}
	if email := nonEmpty(in.Email); email != nil {
		lower := strings.ToLower(*email)
		upd.Email = &lower
	}

	if upd.Email != nil {
		other, err := s.userRepo.FindByEmailOrMobile(ctx, *upd.Email, "", agent.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if other != nil {
			return nil, apperr.Conflict("Email already exists")
		}
	}
	if upd.Mobile != nil {
		other, err := s.userRepo.FindByEmailOrMobile(ctx, "", *upd.Mobile, agent.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if other != nil {
			return nil, apperr.Conflict("Mobile number already exists")
		}
	}
	if in.Password != nil && *in.Password != "" {
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		upd.Password = &hashed
	}

	updated, err := s.userRepo.UpdateUser(ctx, agent.ID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict("Email already exists")
		}
		return nil, apperr.Internal(err)
	}
	if updated == nil {
		return nil, apperr.NotFound(msgAgentNotFound)
	}

	if agent.Active && !updated.Active {
		if err := s.cascadeDeactivation(ctx, caller, agent.ID); err != nil {
			return nil, err
		}
	}
	if updated.FullName() != agent.FullName() {
		if err := s.accountRepo.RenameHolder(ctx, agent.ID, updated.FullName()); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return updated, nil
}

func (s *agentService) UpdateAgentPassword(ctx context.Context, caller models.Identity, id string, in ChangePasswordInput) error {
	switch {
	case caller.IsAdmin():
		if in.NewPassword == "" || in.ConfirmPassword == "" {
			return apperr.Validation("New password and confirm password are required")
		}
	case caller.IsAgent():
		if caller.ID.Hex() != id {
			return apperr.Unauthorized("Unauthorized to change this password")
		}
		if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
			return apperr.Validation("Old password, new password, and confirm password are required")
		}
	default:
		return apperr.Unauthorized("Unauthorized to change this password")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.Validation(msgPasswordsMismatch)
	}

	agent, err := s.loadAgent(ctx, id)
	if err != nil {
		return err
	}
	if caller.IsAgent() && !auth.CheckPassword(agent.Password, in.OldPassword) {
		return apperr.Validation("Invalid old password")
	}

	hashed, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	updated, err := s.userRepo.UpdateUser(ctx, agent.ID, &models.UserUpdate{
		Password:  &hashed,
		UpdatedBy: caller.FirstName,
		UpdatedOn: s.now(),
	})
	if err != nil {
		return apperr.Internal(err)
	}
	if updated == nil {
		return apperr.NotFound(msgAgentNotFound)
	}
	return nil
}

func (s *agentService) DeleteAgent(ctx context.Context, caller models.Identity, id string) error {
	if !caller.IsAdmin() {
		return apperr.Unauthorized(msgAdminsOnly)
	}
	agent, err := s.loadAgent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.cascadeDeactivation(ctx, caller, agent.ID); err != nil {
		return err
	}
	deleted, err := s.userRepo.DeleteUser(ctx, agent.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return apperr.NotFound(msgAgentNotFound)
	}
	return nil
}

func (s *agentService) GetAgents(ctx context.Context, caller models.Identity) ([]*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized(msgAdminsOnly)
	}
	agents, err := s.userRepo.GetUsersByRole(ctx, models.RoleAgent)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return agents, nil
}

// cascadeDeactivation switches off every account held by agentID. Accounts of
// other agents are never touched.
func (s *agentService) cascadeDeactivation(ctx context.Context, caller models.Identity, agentID primitive.ObjectID) error {
	now := s.now()
	if _, err := s.accountRepo.DeactivateByAgent(ctx, agentID, caller.FirstName, now); err != nil {
		return apperr.Internal(err)
	}
	s.notifier.Publish(&models.Notification{
		Type:    models.NotificationAccountDeactivated,
		AgentID: agentID,
		At:      now,
	})
	return nil
}

func (s *agentService) loadAgent(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound(msgAgentNotFound)
	}
	agent, err := s.userRepo.GetUserByID(ctx, objID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil || agent.Role != models.RoleAgent {
		return nil, apperr.NotFound(msgAgentNotFound)
	}
	return agent, nil
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
