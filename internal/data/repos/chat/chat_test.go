package chat

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
)

func TestMessageRepoRecentAndClear(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	email := testutil.UniqueEmail("chat")

	base := time.Now().UTC().Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		m := &types.ChatMessage{UserEmail: email, Role: "user", Kind: "chat", Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := repo.Create(dbc, m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	rows, err := repo.ListRecent(dbc, email, 2)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListRecent: rows=%d err=%v", len(rows), err)
	}
	if rows[0].Content != "third" {
		t.Fatalf("ListRecent order: first=%q", rows[0].Content)
	}
	if n, err := repo.DeleteByUser(dbc, email); err != nil || n != 3 {
		t.Fatalf("DeleteByUser: n=%d err=%v", n, err)
	}
}

func TestPDFSummaryRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewPDFSummaryRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	email := testutil.UniqueEmail("pdf")

	if err := repo.Upsert(dbc, &types.PDFSummary{UserEmail: email, Name: "notes.pdf", Content: "v1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.PDFSummary{UserEmail: email, Name: "notes.pdf", Content: "v2"}); err != nil {
		t.Fatalf("Upsert(replace): %v", err)
	}
	got, err := repo.GetByName(dbc, email, "notes.pdf")
	if err != nil || got == nil || got.Content != "v2" {
		t.Fatalf("GetByName: %v err=%v", got, err)
	}
	list, err := repo.List(dbc, email, false)
	if err != nil || len(list) != 1 || list[0].Content != "" {
		t.Fatalf("List(without content): %+v err=%v", list, err)
	}
	deleted, err := repo.DeleteByName(dbc, email, "notes.pdf")
	if err != nil || !deleted {
		t.Fatalf("DeleteByName: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteByName(dbc, email, "notes.pdf")
	if err != nil || deleted {
		t.Fatalf("DeleteByName(missing): deleted=%v err=%v", deleted, err)
	}
}
