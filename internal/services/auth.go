package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/codestore"
	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	errs "github.com/yungbote/studybuddy-backend/internal/pkg/errors"
	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/ctxutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

const (
	otpTTL          = 10 * time.Minute
	resetTTL        = 10 * time.Minute
	resetPurpose    = "password-reset"
	minPasswordLen  = 6
	otpLow, otpHigh = 100000, 999999
)

// Claims is the payload of every token the service signs. Purpose is empty
// for access tokens.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecret string
	AccessTTL time.Duration
	// ResetURL is the client page the reset email links to.
	ResetURL string
}

type RegisterRequest struct {
	Username string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token    string      `json:"token"`
	User     *types.User `json:"user"`
	UserData *UserData   `json:"user_data"`
}

type LogoutResult struct {
	// SessionDuration is nil when no session was active.
	SessionDuration *float64 `json:"session_duration"`
	// Warning is set when ending the session failed. Logout still succeeds.
	Warning string `json:"warning,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*types.User, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Login(ctx context.Context, email, password string, meta types.SessionData) (*LoginResult, error)
	Logout(ctx context.Context, email string) *LogoutResult
	// ParseToken validates an access token and returns the identity it carries.
	ParseToken(tokenString string) (*ctxutil.RequestData, error)
	AccessTTL() time.Duration
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	users    repos.UserRepo
	codes    codestore.Store
	mail     mailer.Mailer
	ledger   SessionLedger
	userData UserDataService
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	codes codestore.Store,
	mail mailer.Mailer,
	ledger SessionLedger,
	userData UserDataService,
	cfg AuthConfig,
) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	return &authService{
		db:       db,
		log:      baseLog.With("service", "AuthService"),
		users:    users,
		codes:    codes,
		mail:     mail,
		ledger:   ledger,
		userData: userData,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var (
	errInvalidCredentials = errors.New("Invalid credentials")
	errTokenMissing       = errors.New("Token is missing!")
	errTokenExpired       = errors.New("Token has expired!")
	errTokenInvalid       = errors.New("Invalid token!")
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authError(status int, code, message string) *apierr.Error {
	return apierr.New(status, code, errors.New(message))
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpHigh-otpLow+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpLow), nil
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*types.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, invalid("invalid_request", "All fields are required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("invalid_request", "invalid email address")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalid("invalid_request", "password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &types.User{Username: username, Email: email, PasswordHash: string(hash)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.users.GetByEmail(dbc, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsVerified {
				return authError(http.StatusConflict, "user_exists", "User already exists")
			}
			return authError(http.StatusConflict, "pending_verification",
				"Email already registered but not verified. Please verify your account.")
		}
		return s.users.Create(dbc, u)
	})
	if err != nil {
		return nil, err
	}
	if err := s.issueOTP(ctx, email); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_email", email)
	return u, nil
}

func (s *authService) issueOTP(ctx context.Context, email string) error {
	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.codes.Put(ctx, codestore.PurposeOTP, email, codestore.Code{Value: otp, ExpiresAt: s.now().Add(otpTTL)}); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.mail.Send(ctx, mailer.OTPEmail(email, otp)); err != nil {
		s.log.Error("otp email failed", "user_email", email, "error", err)
		return apierr.New(http.StatusInternalServerError, "mail_failed", fmt.Errorf("Failed to send OTP: %w", err))
	}
	return nil
}

// unverifiedUser loads an account that still needs verification.
func (s *authService) unverifiedUser(ctx context.Context, email string) (*types.User, error) {
	if email == "" {
		return nil, invalid("invalid_request", "email required")
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, authError(http.StatusNotFound, "not_found", "User not found")
	}
	if u.IsVerified {
		return nil, authError(http.StatusBadRequest, "already_verified", "User already verified")
	}
	return u, nil
}

func (s *authService) VerifyOTP(ctx context.Context, email, otp string) error {
	email = normalizeEmail(email)
	otp = strings.TrimSpace(otp)
	u, err := s.unverifiedUser(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.codes.Get(ctx, codestore.PurposeOTP, email)
	if err != nil {
		return err
	}
	if code == nil || otp == "" {
		return authError(http.StatusBadRequest, "invalid_otp", "Invalid OTP")
	}
	if code.Expired(s.now()) {
		return authError(http.StatusBadRequest, "otp_expired", "OTP expired. Please request a new one.")
	}
	if code.Value != otp {
		return authError(http.StatusBadRequest, "invalid_otp", "Invalid OTP")
	}
	ok, err := s.codes.Consume(ctx, codestore.PurposeOTP, email, otp)
	if err != nil {
		return err
	}
	if !ok {
		return authError(http.StatusBadRequest, "invalid_otp", "Invalid OTP")
	}
	if err := s.users.UpdateFields(dbctx.Context{Ctx: ctx}, u.ID, map[string]any{"is_verified": true}); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	s.log.Info("email verified", "user_email", email)
	return nil
}

func (s *authService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := s.unverifiedUser(ctx, email); err != nil {
		return err
	}
	return s.issueOTP(ctx, email)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("invalid_request", "email required")
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return err
	}
	if u == nil {
		return authError(http.StatusNotFound, "not_found", "User not found")
	}
	if !u.IsVerified {
		return authError(http.StatusForbidden, "email_not_verified", "Please verify your email before resetting password.")
	}

	jti := uuid.NewString()
	now := s.now()
	exp := now.Add(resetTTL)
	token, err := s.sign(Claims{
		Email:   email,
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return err
	}
	if err := s.codes.Put(ctx, codestore.PurposeReset, email, codestore.Code{Value: jti, ExpiresAt: exp}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if err := s.mail.Send(ctx, mailer.ResetEmail(email, s.cfg.ResetURL, token)); err != nil {
		s.log.Error("reset email failed", "user_email", email, "error", err)
		return apierr.New(http.StatusInternalServerError, "mail_failed", fmt.Errorf("Failed to send reset email: %w", err))
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return invalid("invalid_request", "token and new password required")
	}
	if len(newPassword) < minPasswordLen {
		return invalid("invalid_request", "password must be at least %d characters", minPasswordLen)
	}
	claims, err := s.parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authError(http.StatusBadRequest, "reset_expired", "Reset token expired")
		}
		return authError(http.StatusBadRequest, "invalid_reset_token", "Invalid reset token")
	}
	if claims.Purpose != resetPurpose || claims.ID == "" {
		return authError(http.StatusBadRequest, "invalid_reset_token", "Invalid reset token")
	}
	email := normalizeEmail(claims.Email)
	ok, err := s.codes.Consume(ctx, codestore.PurposeReset, email, claims.ID)
	if err != nil {
		return err
	}
	if !ok {
		return authError(http.StatusBadRequest, "invalid_reset_token", "Invalid reset token")
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return err
	}
	if u == nil {
		return authError(http.StatusBadRequest, "invalid_reset_token", "Invalid reset token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdateFields(dbctx.Context{Ctx: ctx}, u.ID, map[string]any{"password_hash": string(hash)}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.Info("password reset", "user_email", email)
	return nil
}

func (s *authService) Login(ctx context.Context, email, password string, meta types.SessionData) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("invalid_request", "email and password required")
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apierr.Unauthorized(errInvalidCredentials)
	}
	if !u.IsVerified {
		return nil, apierr.Forbidden("email_not_verified", ErrUnverified)
	}

	token, err := s.accessToken(u)
	if err != nil {
		return nil, err
	}
	// Session time feeds progress, so it never comes from the client.
	meta.LoginTime = s.now().Format(time.RFC3339Nano)
	if _, err := s.ledger.StartSession(ctx, email, meta); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	out := &LoginResult{Token: token, User: u}
	if s.userData != nil {
		data, err := s.userData.HomeData(ctx, email)
		if err != nil {
			s.log.Warn("login user data unavailable", "user_email", email, "error", err)
		} else {
			out.UserData = data
		}
	}
	s.log.Info("user logged in", "user_email", email)
	return out, nil
}

func (s *authService) Logout(ctx context.Context, email string) *LogoutResult {
	minutes, err := s.ledger.EndSession(ctx, normalizeEmail(email))
	if err != nil {
		s.log.Warn("logout completed with warnings", "user_email", email, "error", err)
		return &LogoutResult{Warning: err.Error()}
	}
	return &LogoutResult{SessionDuration: minutes}
}

func (s *authService) accessToken(u *types.User) (string, error) {
	now := s.now()
	return s.sign(Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	})
}

func (s *authService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errs.ErrUnauthorized
	}
	return claims, nil
}

func (s *authService) ParseToken(tokenString string) (*ctxutil.RequestData, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apierr.Unauthorized(errTokenMissing)
	}
	claims, err := s.parse(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.Unauthorized(errTokenExpired)
		}
		return nil, apierr.Unauthorized(errTokenInvalid)
	}
	if claims.Purpose != "" || claims.Email == "" {
		return nil, apierr.Unauthorized(errTokenInvalid)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized(errTokenInvalid)
	}
	return &ctxutil.RequestData{TokenString: tokenString, UserID: userID, Email: normalizeEmail(claims.Email)}, nil
}

func (s *authService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}
