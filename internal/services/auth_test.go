package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/data/codestore"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

type authFixture struct {
	env  *testEnv
	mail *mailer.LogMailer
	svc  *authService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	env := newTestEnv(t)
	mail := mailer.NewLogMailer(env.log, mailer.Config{FromEmail: "no-reply@example.com"})
	ledger := NewSessionLedger(env.db, env.log, env.set.Session, env.set.Progress)
	progress := env.progress()
	study := NewStudyService(env.db, env.log, &scriptedLLM{}, env.catalogue, env.set)
	userData := NewUserDataService(env.log, env.set, study, progress)
	svc := NewAuthService(env.db, env.log, env.set.User, codestore.NewUserColumnStore(env.set.User), mail, ledger, userData, AuthConfig{
		JWTSecret: "test-secret",
		AccessTTL: time.Hour,
		ResetURL:  "http://localhost:3000/reset-password",
	}).(*authService)
	return &authFixture{env: env, mail: mail, svc: svc}
}

func (f *authFixture) lastMail(t *testing.T) mailer.Message {
	t.Helper()
	sent := f.mail.Sent()
	if len(sent) == 0 {
		t.Fatalf("no mail sent")
	}
	return sent[len(sent)-1]
}

func (f *authFixture) register(t *testing.T, email, password string) string {
	t.Helper()
	if _, err := f.svc.Register(context.Background(), RegisterRequest{Username: "Ada", Email: email, Password: password}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	otp := otpPattern.FindString(f.lastMail(t).Text)
	if otp == "" {
		t.Fatalf("otp not found in %q", f.lastMail(t).Text)
	}
	return otp
}

func TestRegisterVerifyLoginLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("auth")
	otp := f.register(t, strings.ToUpper(email), "hunter22")

	_, err := f.svc.Login(ctx, email, "hunter22", types.SessionData{})
	requireAPIError(t, err, http.StatusForbidden, "email_not_verified")

	_, err = f.svc.Register(ctx, RegisterRequest{Username: "Ada", Email: email, Password: "hunter22"})
	requireAPIError(t, err, http.StatusConflict, "pending_verification")

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	requireAPIError(t, f.svc.VerifyOTP(ctx, email, wrong), http.StatusBadRequest, "invalid_otp")
	if err := f.svc.VerifyOTP(ctx, email, otp); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	requireAPIError(t, f.svc.VerifyOTP(ctx, email, otp), http.StatusBadRequest, "already_verified")

	_, err = f.svc.Login(ctx, email, "wrong-password", types.SessionData{})
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")

	res, err := f.svc.Login(ctx, email, "hunter22", types.SessionData{UserAgent: "test"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.User.Email != email || res.UserData == nil || res.UserData.Progress == nil {
		t.Fatalf("login result = %+v", res)
	}
	rd, err := f.svc.ParseToken(res.Token)
	if err != nil || rd.Email != email || rd.UserID != res.User.ID {
		t.Fatalf("ParseToken: rd=%+v err=%v", rd, err)
	}

	out := f.svc.Logout(ctx, email)
	if out.SessionDuration == nil || out.Warning != "" {
		t.Fatalf("logout = %+v", out)
	}
	again := f.svc.Logout(ctx, email)
	if again.SessionDuration != nil {
		t.Fatalf("second logout should report no session: %+v", again)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("expired")
	otp := f.register(t, email, "hunter22")

	f.svc.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	requireAPIError(t, f.svc.VerifyOTP(ctx, email, otp), http.StatusBadRequest, "otp_expired")

	f.svc.now = func() time.Time { return time.Now().UTC() }
	if err := f.svc.ResendOTP(ctx, email); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	fresh := otpPattern.FindString(f.lastMail(t).Text)
	if err := f.svc.VerifyOTP(ctx, email, fresh); err != nil {
		t.Fatalf("VerifyOTP(fresh): %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("reset")
	otp := f.register(t, email, "hunter22")

	requireAPIError(t, f.svc.ForgotPassword(ctx, email), http.StatusForbidden, "email_not_verified")
	if err := f.svc.VerifyOTP(ctx, email, otp); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	requireAPIError(t, f.svc.ForgotPassword(ctx, testutil.UniqueEmail("ghost")), http.StatusNotFound, "not_found")

	if err := f.svc.ForgotPassword(ctx, email); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	text := f.lastMail(t).Text
	i := strings.Index(text, "?token=")
	if i < 0 {
		t.Fatalf("reset link missing: %q", text)
	}
	token := strings.TrimSpace(text[i+len("?token="):])

	if _, err := f.svc.ParseToken(token); err == nil {
		t.Fatalf("reset token must not authenticate requests")
	}
	if err := f.svc.ResetPassword(ctx, token, "correct-horse"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	requireAPIError(t, f.svc.ResetPassword(ctx, token, "another-one"), http.StatusBadRequest, "invalid_reset_token")
	requireAPIError(t, f.svc.ResetPassword(ctx, "not-a-token", "another-one"), http.StatusBadRequest, "invalid_reset_token")

	if _, err := f.svc.Login(ctx, email, "correct-horse", types.SessionData{}); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	u, err := f.env.set.User.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil || u.ResetTokenID != "" {
		t.Fatalf("reset token should be cleared: %+v err=%v", u, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "hunter22"})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
	_, err = f.svc.Register(ctx, RegisterRequest{Username: "a", Email: "not-an-email", Password: "hunter22"})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
	_, err = f.svc.Register(ctx, RegisterRequest{Username: "a", Email: "a@example.com", Password: "123"})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
}
