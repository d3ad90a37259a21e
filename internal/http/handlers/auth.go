package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), authService: authService}
}

// POST /auth/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = req.Username
	}
	if _, err := ah.authService.Register(c.Request.Context(), services.RegisterRequest{
		Username: name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		response.RespondServiceError(c, ah.log, "registration_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully. Please check your email for the OTP."})
}

// POST /auth/verify-otp
func (ah *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		response.RespondServiceError(c, ah.log, "verification_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Email verified successfully! You can now log in."})
}

// POST /auth/resend-otp
func (ah *AuthHandler) ResendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.ResendOTP(c.Request.Context(), req.Email); err != nil {
		response.RespondServiceError(c, ah.log, "resend_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "New OTP sent successfully."})
}

// POST /auth/forgot-password
func (ah *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.RespondServiceError(c, ah.log, "forgot_password_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Password reset email sent successfully."})
}

// POST /auth/reset-password
func (ah *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.RespondServiceError(c, ah.log, "reset_password_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Password reset successfully!"})
}

// POST /auth/login
// body: { "email": "...", "password": "..." }
// The login time is stamped by the server; any client value is ignored.
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password, types.SessionData{
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		response.RespondServiceError(c, ah.log, "login_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":    "Login successful",
		"token":      res.Token,
		"expires_in": int(ah.authService.AccessTTL().Seconds()),
		"user":       gin.H{"name": res.User.Username, "email": res.User.Email},
		"user_data":  res.UserData,
	})
}

// POST /logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	res := ah.authService.Logout(c.Request.Context(), email)
	msg := "Logout successful"
	switch {
	case res.Warning != "":
		msg = "Logout completed with warnings"
	case res.SessionDuration == nil:
		msg = "Logout successful (no active session found)"
	}
	body := gin.H{"message": msg, "session_duration": res.SessionDuration}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	response.RespondOK(c, body)
}
