package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/normalization"
)

func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, verified bool) *types.User {
	tb.Helper()
	u := &types.User{
		Username:     "learner",
		Email:        UniqueEmail("user"),
		PasswordHash: "x",
		IsVerified:   verified,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedRoadmap(tb testing.TB, ctx context.Context, tx *gorm.DB, email, topic string, subtopics ...string) *types.Roadmap {
	tb.Helper()
	items := make([]types.Subtopic, 0, len(subtopics))
	for i, s := range subtopics {
		items = append(items, types.Subtopic{ID: i + 1, Title: s})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		tb.Fatalf("marshal subtopics: %v", err)
	}
	r := &types.Roadmap{
		UserEmail: email,
		Topic:     normalization.Title(topic),
		TopicKey:  normalization.TopicKey(topic),
		Subtopics: datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed roadmap: %v", err)
	}
	return r
}

func SeedActiveSession(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, loginTime string) *types.Session {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.Session{
		UserEmail:    email,
		IsActive:     true,
		SessionData:  types.SessionData{LoginTime: loginTime, UserAgent: "test", IPAddress: "127.0.0.1"},
		LastAccessed: now,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func PtrTime(v time.Time) *time.Time { return &v }
