package api

import (
	"net/http"

	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	logService  service.LogService
}

func NewAuthHandler(authService service.AuthService, logService service.LogService) *AuthHandler {
	return &AuthHandler{authService: authService, logService: logService}
}

func identityOf(u *models.User) models.Identity {
	return models.Identity{ID: u.ID, Role: u.Role, Email: u.Email, FirstName: u.FirstName}
}

// @Summary Log in
// @Description Exchanges email and password for a bearer token valid for two hours
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} Envelope{data=LoginResponse}
// @Failure 400 {object} Envelope "Invalid Email or Password"
// @Failure 403 {object} Envelope "Inactive agent"
// @Failure 429 {object} Envelope "Too many requests"
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identityOf(res.User), "Login", "User logged in", nil)
	respond(c, http.StatusOK, newLoginResponse(res), "Login successful")
}

// @Summary Mobile log in
// @Description Logs in and registers the device token on the user and every account it holds
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body MobileLoginRequest true "Credentials and device token"
// @Success 200 {object} Envelope{data=LoginResponse}
// @Failure 400 {object} Envelope "Missing fields or bad credentials"
// @Failure 403 {object} Envelope "Inactive agent"
// @Router /mobile/login [post]
func (h *AuthHandler) MobileLogin(c *gin.Context) {
	var req MobileLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.MobileLogin(c.Request.Context(), req.Email, req.Password, req.FCMToken)
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identityOf(res.User), "MobileLogin", "User logged in from a mobile device", nil)
	respond(c, http.StatusOK, newLoginResponse(res), "Login successful")
}

// @Summary Mobile log out
// @Description Removes the device token from the caller and its accounts and clears the stored session
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param device body DeviceTokenRequest true "Device token"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope "FCM token is required"
// @Router /mobile/logout [post]
func (h *AuthHandler) MobileLogout(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req DeviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.MobileLogout(c.Request.Context(), identity, req.FCMToken); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "MobileLogout", "User logged out from a mobile device", nil)
	respond(c, http.StatusOK, nil, "Logout successful")
}

// @Summary Register a device
// @Description Adds a device token to a user and to every account it holds. Users may register their own devices; admins any
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param device body DeviceTokenRequest true "Device token"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope "Unauthorized"
// @Failure 404 {object} Envelope "User not found"
// @Router /updateDeviceId/{id} [put]
func (h *AuthHandler) RegisterDevice(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req DeviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := c.Param("id")
	if err := h.authService.RegisterDevice(c.Request.Context(), identity, userID, req.FCMToken); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "RegisterDevice", "Registered a device token", map[string]interface{}{"user_id": userID})
	respond(c, http.StatusOK, nil, "Device registered successfully")
}

// @Summary Create an admin
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param admin body CreateUserRequest true "Admin"
// @Success 201 {object} Envelope{data=models.User}
// @Failure 400 {object} Envelope "Missing fields or duplicate email"
// @Failure 401 {object} Envelope "Admins only"
// @Router /createAdmin [post]
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	admin, err := h.authService.CreateAdmin(c.Request.Context(), identity, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "CreateAdmin", "Created admin "+admin.Email, map[string]interface{}{"admin_id": admin.ID.Hex()})
	respond(c, http.StatusCreated, admin, "Admin created successfully")
}

// @Summary List admins
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=[]models.User}
// @Failure 401 {object} Envelope "Admins only"
// @Router /getAllAdmins [get]
func (h *AuthHandler) GetAllAdmins(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	admins, err := h.authService.GetAllAdmins(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, admins, "")
}

// @Summary Change own password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param passwords body ChangePasswordRequest true "Old, new and confirmation password"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope "Mismatch or wrong old password"
// @Router /changePassword [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), identity, req.input()); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "ChangePassword", "Changed own password", nil)
	respond(c, http.StatusOK, nil, "Password changed successfully")
}
