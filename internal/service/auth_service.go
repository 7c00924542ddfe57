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

const msgInvalidCredentials = "Invalid Email or Password"

type LoginResult struct {
	Token string
	User  *models.User
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	MobileLogin(ctx context.Context, email, password, deviceToken string) (*LoginResult, error)
	MobileLogout(ctx context.Context, caller models.Identity, deviceToken string) error
	RegisterDevice(ctx context.Context, caller models.Identity, userID, deviceToken string) error
	CreateAdmin(ctx context.Context, caller models.Identity, in CreateUserInput) (*models.User, error)
	GetAllAdmins(ctx context.Context, caller models.Identity) ([]*models.User, error)
	ChangePassword(ctx context.Context, caller models.Identity, in ChangePasswordInput) error
}

type authService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	issuer      *auth.Issuer
	now         func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, accountRepo repository.AccountRepository, issuer *auth.Issuer) AuthService {
	return &authService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		issuer:      issuer,
		now:         time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *authService) MobileLogin(ctx context.Context, email, password, deviceToken string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	deviceToken = strings.TrimSpace(deviceToken)
	if email == "" || password == "" || deviceToken == "" {
		return nil, apperr.Validation("Email, password, and FCM token are required")
	}
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.attachDevice(ctx, user.ID, deviceToken); err != nil {
		return nil, err
	}
	user.DeviceTokens = appendUnique(user.DeviceTokens, deviceToken)
	return s.startSession(ctx, user)
}

func (s *authService) MobileLogout(ctx context.Context, caller models.Identity, deviceToken string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return apperr.Validation("FCM token is required")
	}
	user, err := s.userRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}

	if err := s.userRepo.RemoveDeviceToken(ctx, user.ID, deviceToken); err != nil {
		return apperr.Internal(err)
	}
	if err := s.accountRepo.RemoveDeviceTokenByAgent(ctx, user.ID, deviceToken); err != nil {
		return apperr.Internal(err)
	}
	if err := s.userRepo.SetSessionToken(ctx, user.ID, nil); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *authService) RegisterDevice(ctx context.Context, caller models.Identity, userID, deviceToken string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return apperr.Validation("FCM token is required")
	}
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.NotFound("User not found")
	}
	if !caller.IsAdmin() && caller.ID != objID {
		return apperr.Unauthorized("Unauthorized to update this device")
	}
	user, err := s.userRepo.GetUserByID(ctx, objID)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}
	return s.attachDevice(ctx, user.ID, deviceToken)
}

func (s *authService) CreateAdmin(ctx context.Context, caller models.Identity, in CreateUserInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized("Unauthorized access")
	}
	in.normalize()
	if !in.complete() {
		return nil, apperr.Validation("First name, Last name, email, mobile, and password are required")
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("Admin already exists")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	admin := &models.User{
		Role:         models.RoleAdmin,
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
	if err := s.userRepo.SaveUser(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperr.Conflict("Admin already exists")
		}
		return nil, apperr.Internal(err)
	}
	return admin, nil
}

func (s *authService) GetAllAdmins(ctx context.Context, caller models.Identity) ([]*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized("Unauthorized access")
	}
	admins, err := s.userRepo.GetUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return admins, nil
}

func (s *authService) ChangePassword(ctx context.Context, caller models.Identity, in ChangePasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return apperr.Validation("Old password, new password, and confirm password are required")
	}
	user, err := s.userRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}
	if !auth.CheckPassword(user.Password, in.OldPassword) {
		return apperr.Validation("Invalid old password")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.Validation(msgPasswordsMismatch)
	}

	hashed, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if _, err := s.userRepo.UpdateUser(ctx, user.ID, &models.UserUpdate{
		Password:  &hashed,
		UpdatedBy: caller.FirstName,
		UpdatedOn: s.now(),
	}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *authService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return nil, apperr.Validation(msgInvalidCredentials)
	}
	if user.Role == models.RoleAgent && !user.Active {
		return nil, apperr.Forbidden("Your account is inactive. Please contact the administrator.")
	}
	return user, nil
}

// startSession issues a token and stores it as the user's single active copy.
func (s *authService) startSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.userRepo.SetSessionToken(ctx, user.ID, &token); err != nil {
		return nil, apperr.Internal(err)
	}
	user.SessionToken = &token
	return &LoginResult{Token: token, User: user}, nil
}

// attachDevice adds token to the user and to every account the user holds.
func (s *authService) attachDevice(ctx context.Context, userID primitive.ObjectID, token string) error {
	if err := s.userRepo.AddDeviceToken(ctx, userID, token); err != nil {
		return apperr.Internal(err)
	}
	if err := s.accountRepo.AddDeviceTokenByAgent(ctx, userID, token); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
