package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mehrbod2002/equitywatch/internal/limits"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/service"
)

// FlexBool accepts JSON booleans as well as "true" and "false" strings, which
// some clients send for form-backed toggles.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			*b = true
		case "false":
			*b = false
		default:
			return fmt.Errorf("expected boolean, got %q", s)
		}
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected boolean, got %s", data)
	}
	*b = FlexBool(v)
	return nil
}

func (b *FlexBool) ptr() *bool {
	if b == nil {
		return nil
	}
	v := bool(*b)
	return &v
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MobileLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FCMToken string `json:"fcmtoken"`
}

type DeviceTokenRequest struct {
	FCMToken string `json:"fcmtoken"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	ID        string      `json:"id"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
}

func newLoginResponse(res *service.LoginResult) LoginResponse {
	return LoginResponse{
		Token:     res.Token,
		FirstName: res.User.FirstName,
		LastName:  res.User.LastName,
		Email:     res.User.Email,
		ID:        res.User.ID.Hex(),
		Role:      res.User.Role,
		Active:    res.User.Active,
	}
}

type CreateUserRequest struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Password  string    `json:"password"`
	Active    *FlexBool `json:"active"`
}

func (r CreateUserRequest) input() service.CreateUserInput {
	return service.CreateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Mobile:    r.Mobile,
		Password:  r.Password,
		Active:    r.Active.ptr(),
	}
}

type UpdateAgentRequest struct {
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Email     *string   `json:"email"`
	Mobile    *string   `json:"mobile"`
	Password  *string   `json:"password"`
	Active    *FlexBool `json:"active"`
}

func (r UpdateAgentRequest) input() service.UpdateAgentInput {
	return service.UpdateAgentInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Mobile:    r.Mobile,
		Password:  r.Password,
		Active:    r.Active.ptr(),
	}
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r ChangePasswordRequest) input() service.ChangePasswordInput {
	return service.ChangePasswordInput{
		OldPassword:     r.OldPassword,
		NewPassword:     r.NewPassword,
		ConfirmPassword: r.ConfirmPassword,
	}
}

// CreateAccountRequest uses the stored document field names, misspellings included.
type CreateAccountRequest struct {
	AccountLoginID            string           `json:"AccountLoginId"`
	AccountPassword           string           `json:"AccountPassword"`
	ServerName                string           `json:"ServerName"`
	EquityType                limits.OptString `json:"EquityType" swaggertype:"string"`
	EquityThreshold           limits.OptNumber `json:"EquityThreshhold" swaggertype:"number"`
	UpperLimitEquityType      limits.OptString `json:"UpperLimitEquityType" swaggertype:"string"`
	UpperLimitEquityThreshold limits.OptNumber `json:"UpperLimitEquityThreshhold" swaggertype:"number"`
	MessageCheck              *FlexBool        `json:"messageCheck" swaggertype:"boolean"`
	EmailCheck                *FlexBool        `json:"emailCheck" swaggertype:"boolean"`
	UpperLimitMessageCheck    *FlexBool        `json:"UpperLimitMessageCheck" swaggertype:"boolean"`
	UpperLimitEmailCheck      *FlexBool        `json:"UpperLimitEmailCheck" swaggertype:"boolean"`
	AgentID                   string           `json:"agentId"`
	Active                    *FlexBool        `json:"active" swaggertype:"boolean"`
	UserPassword              string           `json:"userPassword"`
}

func (r CreateAccountRequest) input() service.CreateAccountInput {
	return service.CreateAccountInput{
		AccountLoginID:         r.AccountLoginID,
		AccountPassword:        r.AccountPassword,
		ServerName:             r.ServerName,
		Lower:                  limits.Patch{Type: r.EquityType, Threshold: r.EquityThreshold},
		Upper:                  limits.Patch{Type: r.UpperLimitEquityType, Threshold: r.UpperLimitEquityThreshold},
		MessageCheck:           r.MessageCheck.ptr(),
		EmailCheck:             r.EmailCheck.ptr(),
		UpperLimitMessageCheck: r.UpperLimitMessageCheck.ptr(),
		UpperLimitEmailCheck:   r.UpperLimitEmailCheck.ptr(),
		AgentID:                r.AgentID,
		Active:                 r.Active.ptr(),
		UserPassword:           r.UserPassword,
	}
}

// UpdateAccountRequest distinguishes absent limit fields from explicit nulls.
type UpdateAccountRequest struct {
	AccountLoginID            *string          `json:"AccountLoginId"`
	ServerName                *string          `json:"ServerName"`
	EquityType                limits.OptString `json:"EquityType" swaggertype:"string"`
	EquityThreshold           limits.OptNumber `json:"EquityThreshhold" swaggertype:"number"`
	UpperLimitEquityType      limits.OptString `json:"UpperLimitEquityType" swaggertype:"string"`
	UpperLimitEquityThreshold limits.OptNumber `json:"UpperLimitEquityThreshhold" swaggertype:"number"`
	MessageCheck              *FlexBool        `json:"messageCheck" swaggertype:"boolean"`
	EmailCheck                *FlexBool        `json:"emailCheck" swaggertype:"boolean"`
	UpperLimitMessageCheck    *FlexBool        `json:"UpperLimitMessageCheck" swaggertype:"boolean"`
	UpperLimitEmailCheck      *FlexBool        `json:"UpperLimitEmailCheck" swaggertype:"boolean"`
	MobileAlert               *FlexBool        `json:"mobileAlert" swaggertype:"boolean"`
	AgentID                   *string          `json:"agentId"`
	Active                    *FlexBool        `json:"active" swaggertype:"boolean"`
	UserPassword              string           `json:"userPassword"`
}

func (r UpdateAccountRequest) input() service.UpdateAccountInput {
	return service.UpdateAccountInput{
		AccountLoginID:         r.AccountLoginID,
		ServerName:             r.ServerName,
		Lower:                  limits.Patch{Type: r.EquityType, Threshold: r.EquityThreshold},
		Upper:                  limits.Patch{Type: r.UpperLimitEquityType, Threshold: r.UpperLimitEquityThreshold},
		MessageCheck:           r.MessageCheck.ptr(),
		EmailCheck:             r.EmailCheck.ptr(),
		UpperLimitMessageCheck: r.UpperLimitMessageCheck.ptr(),
		UpperLimitEmailCheck:   r.UpperLimitEmailCheck.ptr(),
		MobileAlert:            r.MobileAlert.ptr(),
		AgentID:                r.AgentID,
		Active:                 r.Active.ptr(),
		UserPassword:           r.UserPassword,
	}
}
