package codestore

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/user"
)

func TestUserColumnStoreRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, false)
	store := NewUserColumnStore(user.NewUserRepo(db, testutil.Logger(t)))

	exp := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	if err := store.Put(ctx, PurposeReset, u.Email, Code{Value: "jti-1", ExpiresAt: exp}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, PurposeReset, u.Email)
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.Value != "jti-1" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("Get: unexpected code %+v", got)
	}
	if got.Expired(time.Now()) {
		t.Fatalf("fresh code reported expired")
	}
	if otp, _ := store.Get(ctx, PurposeOTP, u.Email); otp != nil {
		t.Fatalf("purposes must not share storage, got %+v", otp)
	}

	if ok, err := store.Consume(ctx, PurposeReset, u.Email, "jti-1"); err != nil || !ok {
		t.Fatalf("Consume: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.Consume(ctx, PurposeReset, u.Email, "jti-1"); ok {
		t.Fatalf("second Consume must fail")
	}
}

func TestUserColumnStoreUnknownEmail(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	store := NewUserColumnStore(user.NewUserRepo(db, testutil.Logger(t)))
	if err := store.Put(ctx, PurposeOTP, "ghost@example.com", Code{Value: "1", ExpiresAt: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, err := store.Get(ctx, PurposeOTP, "ghost@example.com"); err != nil || got != nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
}
