package service

import (
	"testing"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t, "idle", false)

	_, err := f.sessions.Login(f.ctx, "", "x")
	assertAppErr(t, err, apperr.KindValidation, "Email and password are required")

	_, err = f.sessions.Login(f.ctx, "admin@example.com", "wrong")
	assertAppErr(t, err, apperr.KindValidation, "Invalid Email or Password")

	_, err = f.sessions.Login(f.ctx, "nobody@example.com", testPassword)
	assertAppErr(t, err, apperr.KindValidation, "Invalid Email or Password")

	_, err = f.sessions.Login(f.ctx, "idle@example.com", testPassword)
	assertAppErr(t, err, apperr.KindForbidden, "Your account is inactive. Please contact the administrator.")

	res, err := f.sessions.Login(f.ctx, " Admin@Example.com ", testPassword)
	require.NoError(t, err)
	claims, err := f.issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID.Hex(), claims.ID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	stored, _ := f.store.GetUserByID(f.ctx, f.admin.ID)
	require.NotNil(t, stored.SessionToken)
	assert.Equal(t, res.Token, *stored.SessionToken)
}

func TestMobileLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)
	acc := f.createAccount(t, alice, "1001", 50)

	_, err := f.sessions.MobileLogin(f.ctx, alice.Email, testPassword, "")
	assertAppErr(t, err, apperr.KindValidation, "Email, password, and FCM token are required")

	res, err := f.sessions.MobileLogin(f.ctx, alice.Email, testPassword, "phone-1")
	require.NoError(t, err)
	assert.Contains(t, res.User.DeviceTokens, "phone-1")

	storedAcc, _ := f.store.GetAccountByID(f.ctx, acc.ID)
	assert.Equal(t, []string{"phone-1"}, storedAcc.DeviceTokens)

	// A second login with the same device does not duplicate it.
	_, err = f.sessions.MobileLogin(f.ctx, alice.Email, testPassword, "phone-1")
	require.NoError(t, err)
	storedUser, _ := f.store.GetUserByID(f.ctx, alice.ID)
	assert.Equal(t, []string{"phone-1"}, storedUser.DeviceTokens)

	require.NoError(t, f.sessions.MobileLogout(f.ctx, identity(alice), "phone-1"))
	storedUser, _ = f.store.GetUserByID(f.ctx, alice.ID)
	storedAcc, _ = f.store.GetAccountByID(f.ctx, acc.ID)
	assert.Empty(t, storedUser.DeviceTokens)
	assert.Nil(t, storedUser.SessionToken)
	assert.Empty(t, storedAcc.DeviceTokens)
}

func TestRegisterDevice(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)
	bob := f.seedAgent(t, "bob", true)
	acc := f.createAccount(t, alice, "1001", 50)

	err := f.sessions.RegisterDevice(f.ctx, identity(bob), alice.ID.Hex(), "x")
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized to update this device")

	require.NoError(t, f.sessions.RegisterDevice(f.ctx, identity(alice), alice.ID.Hex(), "tab-1"))
	require.NoError(t, f.sessions.RegisterDevice(f.ctx, identity(f.admin), alice.ID.Hex(), "tab-2"))

	stored, _ := f.store.GetAccountByID(f.ctx, acc.ID)
	assert.ElementsMatch(t, []string{"tab-1", "tab-2"}, stored.DeviceTokens)
}

func TestAdminManagement(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)

	in := CreateUserInput{FirstName: "Root", LastName: "Two", Email: "root2@example.com", Mobile: "1", Password: "pw"}
	_, err := f.sessions.CreateAdmin(f.ctx, identity(alice), in)
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized access")

	admin, err := f.sessions.CreateAdmin(f.ctx, identity(f.admin), in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = f.sessions.CreateAdmin(f.ctx, identity(f.admin), in)
	assertAppErr(t, err, apperr.KindConflict, "Admin already exists")

	admins, err := f.sessions.GetAllAdmins(f.ctx, identity(f.admin))
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	me := identity(f.admin)

	err := f.sessions.ChangePassword(f.ctx, me, ChangePasswordInput{OldPassword: "x"})
	assertAppErr(t, err, apperr.KindValidation, "Old password, new password, and confirm password are required")

	err = f.sessions.ChangePassword(f.ctx, me, ChangePasswordInput{OldPassword: "bad", NewPassword: "n", ConfirmPassword: "n"})
	assertAppErr(t, err, apperr.KindValidation, "Invalid old password")

	err = f.sessions.ChangePassword(f.ctx, me, ChangePasswordInput{OldPassword: testPassword, NewPassword: "n", ConfirmPassword: "m"})
	assertAppErr(t, err, apperr.KindValidation, "New password and confirm password do not match")

	require.NoError(t, f.sessions.ChangePassword(f.ctx, me, ChangePasswordInput{OldPassword: testPassword, NewPassword: "n", ConfirmPassword: "n"}))
	stored, _ := f.store.GetUserByID(f.ctx, f.admin.ID)
	assert.True(t, auth.CheckPassword(stored.Password, "n"))
}
