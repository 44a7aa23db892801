package session

import (
	"context"
	"errors"
	"testing"

	"study-tutor/internal/backend"
)

func seeded(n int) *fakeGateway {
	gw := &fakeGateway{}
	for i := 0; i < n; i++ {
		gw.files = append(gw.files, backend.FileRecord{Title: string(rune('a'+i)) + ".pdf", Date: "2024-01-01", Subject: "General"})
	}
	return gw
}

func TestRegistryInit_OnlyOnceAfterSuccess(t *testing.T) {
	gw := seeded(2)
	gw.listErr = errDown
	r := NewRegistry(gw)

	if err := r.Init(context.Background()); err == nil {
		t.Fatalf("expected init error")
	}
	if r.Initialized() {
		t.Fatalf("failed init must not mark initialized")
	}
	gw.listErr = nil
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if gw.listN != 2 {
		t.Fatalf("expected 2 list calls, got %d", gw.listN)
	}
	if len(r.Files()) != 2 {
		t.Fatalf("expected 2 files, got %d", len(r.Files()))
	}
}

func TestRegistryRefresh_FailureKeepsListing(t *testing.T) {
	gw := seeded(3)
	r := NewRegistry(gw)
	_ = r.Refresh(context.Background())
	gw.listErr = &backend.ServerError{Op: "files", StatusCode: 500}
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(r.Files()) != 3 || r.Loading() {
		t.Fatalf("listing lost or loading stuck")
	}
}

func TestRegistryDelete_RequiresConfirmation(t *testing.T) {
	gw := seeded(2)
	r := NewRegistry(gw)
	_ = r.Refresh(context.Background())

	if err := r.ConfirmDelete(context.Background(), "a.pdf", 0); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if _, err := r.RequestDelete("missing.pdf"); !errors.Is(err, ErrUnknownFile) {
		t.Fatalf("expected ErrUnknownFile, got %v", err)
	}
	token, err := r.RequestDelete("a.pdf")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !r.CancelDelete(token) {
		t.Fatalf("cancel with current token should succeed")
	}
	if err := r.ConfirmDelete(context.Background(), "a.pdf", token); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("cancelled delete must not run, got %v", err)
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("backend delete called without confirmation")
	}

	token, _ = r.RequestDelete("a.pdf")
	if title, tok, ok := r.PendingDelete(); !ok || title != "a.pdf" || tok != token {
		t.Fatalf("unexpected pending %q %d %v", title, tok, ok)
	}
	if err := r.ConfirmDelete(context.Background(), "a.pdf", token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	files := r.Files()
	if len(files) != 1 || files[0].Title != "b.pdf" {
		t.Fatalf("registry not refreshed after delete: %+v", files)
	}
	if _, _, ok := r.PendingDelete(); ok {
		t.Fatalf("confirmation should be consumed")
	}
}

func TestRegistryDelete_OlderConfirmationIsRefused(t *testing.T) {
	gw := seeded(2)
	r := NewRegistry(gw)
	_ = r.Refresh(context.Background())

	first, _ := r.RequestDelete("a.pdf")
	second, _ := r.RequestDelete("b.pdf")
	if first == second {
		t.Fatalf("each request needs its own token")
	}

	// the a.pdf prompt no longer matches anything pending
	if err := r.ConfirmDelete(context.Background(), "a.pdf", first); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if err := r.ConfirmDelete(context.Background(), "b.pdf", first); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("old token must not confirm the newer request, got %v", err)
	}
	if r.CancelDelete(first) {
		t.Fatalf("old token must not cancel the newer request")
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("unexpected deletes: %v", gw.deleted)
	}
	if title, _, ok := r.PendingDelete(); !ok || title != "b.pdf" {
		t.Fatalf("newer request should stay pending, got %q %v", title, ok)
	}

	if err := r.ConfirmDelete(context.Background(), "b.pdf", second); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != "b.pdf" {
		t.Fatalf("unexpected deletes: %v", gw.deleted)
	}
}

func TestRegistrySnapshot_GenerationFollowsAppliedListings(t *testing.T) {
	gw := seeded(2)
	r := NewRegistry(gw)
	if _, gen := r.Snapshot(); gen != 0 {
		t.Fatalf("empty registry should be generation 0, got %d", gen)
	}
	_ = r.Refresh(context.Background())
	files, gen := r.Snapshot()
	if len(files) != 2 || gen != 1 {
		t.Fatalf("unexpected snapshot: %d files, generation %d", len(files), gen)
	}
	gw.listErr = errDown
	_ = r.Refresh(context.Background())
	if r.Generation() != 1 {
		t.Fatalf("failed refresh must not change the generation")
	}
	gw.listErr = nil
	_ = r.Refresh(context.Background())
	if r.Generation() != 2 {
		t.Fatalf("expected generation 2, got %d", r.Generation())
	}
}

func TestRegistryDelete_FailureKeepsListing(t *testing.T) {
	gw := seeded(2)
	gw.delErr = &backend.ServerError{Op: "delete", StatusCode: 404}
	r := NewRegistry(gw)
	_ = r.Refresh(context.Background())
	token, _ := r.RequestDelete("a.pdf")
	if err := r.ConfirmDelete(context.Background(), "a.pdf", token); !backend.IsServerError(err) {
		t.Fatalf("expected server error, got %v", err)
	}
	if len(r.Files()) != 2 {
		t.Fatalf("listing must not change on failed delete")
	}
}

func TestRegistryDelete_RefreshFailureIsReported(t *testing.T) {
	gw := seeded(2)
	r := NewRegistry(gw)
	_ = r.Refresh(context.Background())
	token, _ := r.RequestDelete("a.pdf")
	gw.listErr = errDown
	err := r.ConfirmDelete(context.Background(), "a.pdf", token)
	if !errors.Is(err, ErrRefreshFailed) || !backend.IsNetworkError(err) {
		t.Fatalf("expected wrapped refresh failure, got %v", err)
	}
	if len(gw.deleted) != 1 {
		t.Fatalf("delete should have happened")
	}
}
