package session

import (
	"context"
	"errors"
	"testing"

	"study-tutor/internal/backend"
)

func TestChatSend_AppendsInOrderAndFlagsInternet(t *testing.T) {
	gw := &fakeGateway{askResp: backend.AskResponse{Answer: "Mitochondria.", Sources: []string{"bio.pdf", "internet"}}}
	c := NewChat(gw)

	turn, err := c.Send(context.Background(), "  what is the powerhouse of the cell? ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !turn.FromInternet() {
		t.Fatalf("expected internet indicator on %+v", turn)
	}
	if len(gw.asked) != 1 || gw.asked[0] != "  what is the powerhouse of the cell? " {
		t.Fatalf("input should be sent untrimmed: %q", gw.asked)
	}

	tr := c.Transcript()
	if len(tr) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(tr))
	}
	if tr[0].Role != RoleUser || tr[1].Role != RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", tr[0].Role, tr[1].Role)
	}
	if tr[1].Content != "Mitochondria." {
		t.Fatalf("unexpected answer: %q", tr[1].Content)
	}

	tr[1].Sources[0] = "mutated"
	if c.Transcript()[1].Sources[0] != "bio.pdf" {
		t.Fatalf("internal state mutated via returned slice")
	}
}

func TestChatSend_NoSourcesIsNotInternet(t *testing.T) {
	c := NewChat(&fakeGateway{askResp: backend.AskResponse{Answer: "ok"}})
	turn, err := c.Send(context.Background(), "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.FromInternet() || turn.Sources == nil {
		t.Fatalf("expected empty non-nil sources, got %#v", turn.Sources)
	}
}

func TestChatSend_EmptyInputNeverCallsBackend(t *testing.T) {
	gw := &fakeGateway{}
	c := NewChat(gw)
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := c.Send(context.Background(), in); !errors.Is(err, ErrEmptyQuestion) {
			t.Fatalf("input %q: expected ErrEmptyQuestion, got %v", in, err)
		}
	}
	if len(gw.asked) != 0 || len(c.Transcript()) != 0 {
		t.Fatalf("empty input must not change anything")
	}
}

func TestChatSend_FailureKeepsUserTurnOnly(t *testing.T) {
	c := NewChat(&fakeGateway{askErr: errDown})
	_, err := c.Send(context.Background(), "hello")
	if !backend.IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	tr := c.Transcript()
	if len(tr) != 1 || tr[0].Role != RoleUser {
		t.Fatalf("expected only the user turn, got %+v", tr)
	}
	if c.InFlight() {
		t.Fatalf("in-flight flag not cleared")
	}
}

func TestChatSend_RejectsSecondWhileInFlight(t *testing.T) {
	gw := &fakeGateway{askResp: backend.AskResponse{Answer: "a"}, gate: make(chan struct{}), entered: make(chan struct{})}
	c := NewChat(gw)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		done <- err
	}()
	<-gw.entered

	if _, err := c.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(gw.gate)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if len(c.Transcript()) != 2 {
		t.Fatalf("second send should not have added a turn")
	}
}

func TestChatClear_DropsLateAnswer(t *testing.T) {
	gw := &fakeGateway{askResp: backend.AskResponse{Answer: "late"}, gate: make(chan struct{}), entered: make(chan struct{})}
	c := NewChat(gw)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "q")
		done <- err
	}()
	<-gw.entered
	c.Clear()
	close(gw.gate)
	<-done

	if n := len(c.Transcript()); n != 0 {
		t.Fatalf("expected empty transcript after clear, got %d turns", n)
	}
}
