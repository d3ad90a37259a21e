package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
)

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("got %d %q, want %d %q (%v)", ae.Status, ae.Code, status, code, err)
	}
}

func TestGenerateRoadmapReindexesAndPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &scriptedLLM{replies: []string{
		"Here you go!\n```json\n[{\"id\":7,\"title\":\"Syntax\",\"description\":\"Basics\"},{\"title\":\"  \"},{\"id\":2,\"title\":\"Types\"}]\n```",
	}}
	svc := NewStudyService(env.db, env.log, fake, env.catalogue, env.set)
	email := testutil.UniqueEmail("roadmap")

	rm, err := svc.GenerateRoadmap(ctx, email, "  Go   Language ")
	if err != nil {
		t.Fatalf("GenerateRoadmap: %v", err)
	}
	if rm.Topic != "Go Language" || len(rm.Subtopics) != 2 {
		t.Fatalf("roadmap = %+v", rm)
	}
	if rm.Subtopics[0].ID != 1 || rm.Subtopics[1].ID != 2 || rm.Subtopics[1].Title != "Types" {
		t.Fatalf("subtopics not re-indexed: %+v", rm.Subtopics)
	}
	if !strings.Contains(fake.prompts[0], `"Go Language"`) {
		t.Fatalf("prompt missing topic: %q", fake.prompts[0])
	}

	got, err := svc.GetRoadmap(ctx, email, "go language")
	if err != nil || len(got.Subtopics) != 2 {
		t.Fatalf("GetRoadmap: got=%+v err=%v", got, err)
	}
	if n, err := svc.TopicCount(ctx, email); err != nil || n != 1 {
		t.Fatalf("TopicCount: n=%d err=%v", n, err)
	}
	_, err = svc.GetRoadmap(ctx, email, "Rust")
	requireAPIError(t, err, http.StatusNotFound, "not_found")
}

func TestGenerateRoadmapModelFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("fail")

	prose := NewStudyService(env.db, env.log, &scriptedLLM{replies: []string{"I am not able to produce a list right now."}}, env.catalogue, env.set)
	_, err := prose.GenerateRoadmap(ctx, email, "Go")
	requireAPIError(t, err, http.StatusBadGateway, "llm_unparseable")

	offline := NewStudyService(env.db, env.log, &scriptedLLM{err: llm.ErrAIOffline}, env.catalogue, env.set)
	_, err = offline.GenerateRoadmap(ctx, email, "Go")
	requireAPIError(t, err, http.StatusServiceUnavailable, "ai_offline")

	_, err = offline.GenerateRoadmap(ctx, email, "   ")
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")

	rms, err := prose.ListRoadmaps(ctx, email)
	if err != nil || len(rms) != 0 {
		t.Fatalf("nothing should be stored: %+v err=%v", rms, err)
	}
}

func TestDetailsNotesAndDeleteTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &scriptedLLM{replies: []string{
		`[{"id":1,"title":"Syntax","description":"d"}]`,
		`[{"section_title":"Basics","section_items":[{"term":"Goroutine","definition":"Lightweight thread."}]}]`,
		"```html\n<h2>Goroutine</h2><p>A lightweight thread.</p>\n```",
	}}
	svc := NewStudyService(env.db, env.log, fake, env.catalogue, env.set)
	email := testutil.UniqueEmail("notes")

	if _, err := svc.GenerateRoadmap(ctx, email, "Go"); err != nil {
		t.Fatalf("GenerateRoadmap: %v", err)
	}
	sections, err := svc.GenerateDetails(ctx, email, "Go")
	if err != nil || len(sections) != 1 || sections[0].SectionTitle != "Basics" {
		t.Fatalf("GenerateDetails: %+v err=%v", sections, err)
	}
	sub, err := svc.GenerateSubDetails(ctx, email, "Go", "Goroutine")
	if err != nil || !strings.HasPrefix(sub.HTML, "<h2>") {
		t.Fatalf("GenerateSubDetails: %+v err=%v", sub, err)
	}

	notes, err := svc.GetNotes(ctx, email, "go", "")
	if err != nil || len(notes) != 2 {
		t.Fatalf("GetNotes: %d err=%v", len(notes), err)
	}
	only, err := svc.GetNotes(ctx, email, "", string(types.NoteSubDetails))
	if err != nil || len(only) != 1 {
		t.Fatalf("GetNotes(sub_details): %d err=%v", len(only), err)
	}
	_, err = svc.GetNotes(ctx, email, "", "poems")
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")

	rep, err := svc.DeleteTopic(ctx, email, "GO")
	if err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if rep.Roadmaps != 1 || rep.Notes != 2 {
		t.Fatalf("report = %+v", rep)
	}
	_, err = svc.DeleteTopic(ctx, email, "Go")
	requireAPIError(t, err, http.StatusNotFound, "not_found")
}
