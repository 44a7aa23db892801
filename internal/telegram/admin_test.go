package telegram

import (
	"context"
	"testing"

	"study-tutor/internal/backend"
)

func TestAdminCommandsRequireAdmin(t *testing.T) {
	b, fs, _ := newTestBot(t, &fakeGateway{})
	b.handleCommand(context.Background(), command(testUser, "/allowlist"))
	if !containsAny(fs.texts(), "administrator only") {
		t.Fatalf("expected refusal, got %+v", fs.texts())
	}
}

func TestAdminAllowlistAndRemove(t *testing.T) {
	b, fs, _ := newTestBot(t, &fakeGateway{})
	ctx := context.Background()
	b.handleCommand(ctx, command(testAdmin, "/allowlist"))
	if !containsAny(fs.texts(), "id=42") {
		t.Fatalf("allowlist missing user: %+v", fs.texts())
	}
	b.handleCommand(ctx, command(testAdmin, "/remove 42"))
	if b.access.IsAllowed(testUser) {
		t.Fatalf("remove not effective")
	}
	b.handleCommand(ctx, command(testAdmin, "/approve nope"))
	if !containsAny(fs.texts(), "Usage: /approve <user_id>") {
		t.Fatalf("expected usage, got %+v", fs.texts())
	}
}

func TestAdminReportSummarisesRecordedEvents(t *testing.T) {
	gw := &fakeGateway{askResp: backend.AskResponse{Answer: "a"}}
	b, fs, _ := newTestBot(t, gw)
	ctx := context.Background()
	b.handleCommand(ctx, command(testUser, "/ask one"))
	b.handleCommand(ctx, command(testUser, "/ask two"))
	fs.reset()

	b.handleCommand(ctx, command(testAdmin, "/report"))
	texts := fs.texts()
	if !containsAny(texts, "2024-01-15") || !containsAny(texts, "- ask: 2") {
		t.Fatalf("unexpected report: %+v", texts)
	}

	fs.reset()
	if err := b.SendDailyReport(ctx); err != nil {
		t.Fatalf("scheduled report: %v", err)
	}
	if len(fs.sent) == 0 {
		t.Fatalf("scheduled report not sent")
	}
}
