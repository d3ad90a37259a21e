package codestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
)

type Purpose string

const (
	PurposeOTP   Purpose = "otp"
	PurposeReset Purpose = "reset"
)

type Code struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Code) Expired(now time.Time) bool {
	return c == nil || !now.Before(c.ExpiresAt)
}

// Store keeps short-lived verification codes keyed by purpose and email.
// Get returns nil, nil when nothing is stored. Consume deletes the code only
// if it still equals value and reports whether it did.
type Store interface {
	Put(ctx context.Context, purpose Purpose, email string, code Code) error
	Get(ctx context.Context, purpose Purpose, email string) (*Code, error)
	Consume(ctx context.Context, purpose Purpose, email, value string) (bool, error)
}

type columns struct {
	code   string
	expiry string
}

var purposeColumns = map[Purpose]columns{
	PurposeOTP:   {code: "otp", expiry: "otp_expiry"},
	PurposeReset: {code: "reset_token_id", expiry: "reset_expiry"},
}

// UserColumnStore keeps codes on the users row. Codes for unknown emails are
// dropped since there is no row to hold them.
type UserColumnStore struct {
	users repos.UserRepo
}

func NewUserColumnStore(users repos.UserRepo) *UserColumnStore {
	return &UserColumnStore{users: users}
}

func columnsFor(p Purpose) (columns, error) {
	cols, ok := purposeColumns[p]
	if !ok {
		return columns{}, fmt.Errorf("codestore: unknown purpose %q", p)
	}
	return cols, nil
}

func (s *UserColumnStore) Put(ctx context.Context, purpose Purpose, email string, code Code) error {
	cols, err := columnsFor(purpose)
	if err != nil {
		return err
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	exp := code.ExpiresAt.UTC()
	return s.users.UpdateFields(dbctx.Context{Ctx: ctx}, u.ID, map[string]any{
		cols.code:   code.Value,
		cols.expiry: exp,
	})
}

func (s *UserColumnStore) Get(ctx context.Context, purpose Purpose, email string) (*Code, error) {
	if _, err := columnsFor(purpose); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, strings.TrimSpace(email))
	if err != nil || u == nil {
		return nil, err
	}
	var (
		value  string
		expiry *time.Time
	)
	switch purpose {
	case PurposeOTP:
		value, expiry = u.OTP, u.OTPExpiry
	case PurposeReset:
		value, expiry = u.ResetTokenID, u.ResetExpiry
	}
	if value == "" || expiry == nil {
		return nil, nil
	}
	return &Code{Value: value, ExpiresAt: expiry.UTC()}, nil
}

func (s *UserColumnStore) Consume(ctx context.Context, purpose Purpose, email, value string) (bool, error) {
	cols, err := columnsFor(purpose)
	if err != nil {
		return false, err
	}
	return s.users.ClearCode(dbctx.Context{Ctx: ctx}, strings.TrimSpace(email), cols.code, cols.expiry, value)
}
