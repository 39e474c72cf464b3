package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// flakySender fails the first failures sends, then records every success.
type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     chan SendRequest
}

func (s *flakySender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return SendResult{}, errors.New("provider unavailable")
	}
	s.sent <- req
	return SendResult{MessageID: "m1", SentAt: time.Now()}, nil
}

func waitSent(t *testing.T, ch <-chan SendRequest) SendRequest {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return SendRequest{}
	}
}

func TestDispatcher_DeliversQueuedMessage(t *testing.T) {
	sender := &flakySender{sent: make(chan SendRequest, 1)}
	d := NewDispatcher(sender, DispatcherConfig{Workers: 1}, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	if err := d.Enqueue(SendRequest{To: []string{"bea@example.com"}, Subject: "hi"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got := waitSent(t, sender.sent)
	if got.Subject != "hi" || got.To[0] != "bea@example.com" {
		t.Fatalf("delivered %+v", got)
	}
}

func TestDispatcher_RetriesFailedSends(t *testing.T) {
	sender := &flakySender{failures: 2, sent: make(chan SendRequest, 1)}
	d := NewDispatcher(sender, DispatcherConfig{Workers: 1, Attempts: 3, Backoff: time.Millisecond}, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	if err := d.Enqueue(SendRequest{To: []string{"cal@example.com"}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitSent(t, sender.sent)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.calls != 3 {
		t.Fatalf("calls = %d, want 3", sender.calls)
	}
}

func TestDispatcher_EnqueueReportsFullQueue(t *testing.T) {
	d := NewDispatcher(&flakySender{}, DispatcherConfig{QueueSize: 1}, discardLogger)

	if err := d.Enqueue(SendRequest{}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := d.Enqueue(SendRequest{}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Enqueue err = %v, want ErrQueueFull", err)
	}
}

func TestInvite_RenderHTML(t *testing.T) {
	in := Invite{
		EventName:     "Design review",
		Description:   "Bring <script>alert(1)</script> notes",
		OrganizerName: "Ada",
		Start:         time.Date(2030, 4, 2, 15, 0, 0, 0, time.UTC),
		Duration:      time.Hour,
		EventURL:      "https://letsmeet.app/event/K7Q2ZP",
	}

	html, err := in.RenderHTML()
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{
		"<h1>Design review</h1>",
		"<strong>Ada</strong>",
		"Tuesday, April 2, 2030 at 15:00 UTC",
		"<strong>Length:</strong> 1 hour",
		`href="https://letsmeet.app/event/K7Q2ZP"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw html was not stripped:\n%s", html)
	}

	if got, want := in.Subject(), "Invitation: Design review @ Tue Apr 2, 2030 15:00 UTC"; got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestInvite_RenderHTML_UserMarkdownIsLiteral(t *testing.T) {
	in := Invite{
		EventName:     "# Urgent *action* required",
		OrganizerName: "[Reset your password](https://evil.example/login)",
		Description:   "![x](https://evil.example/track.png)\n\n- [pay here](https://evil.example/pay) <https://evil.example/auto>",
		Start:         time.Date(2030, 4, 2, 15, 0, 0, 0, time.UTC),
		Duration:      time.Hour,
	}
	html, err := in.RenderHTML()
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, bad := range []string{"<a", "<img", "<em>"} {
		if strings.Contains(html, bad) {
			t.Errorf("html contains %q:\n%s", bad, html)
		}
	}
	for _, want := range []string{
		"<h1># Urgent *action* required</h1>",
		"<strong>[Reset your password](https://evil.example/login)</strong>",
		"![x](https://evil.example/track.png)",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing literal %q:\n%s", want, html)
		}
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.in); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
