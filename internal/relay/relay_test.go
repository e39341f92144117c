package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"puppet-server/internal/hub"
	"puppet-server/internal/model"
	"puppet-server/internal/store"
)

type published struct {
	accountID string
	msgType   string
	body      any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(accountID, msgType string, body any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{accountID, msgType, body})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.msgType)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	clock := int64(1000)
	var mu sync.Mutex
	svc := New(Options{
		Store:     store.NewMemory(),
		Publisher: pub,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock++
			return time.UnixMilli(clock)
		},
	})
	return svc, pub
}

func TestService_AliceScenario(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	a, existing, err := svc.Register(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if existing {
		t.Fatalf("expected new account")
	}
	again, existing, err := svc.Register(ctx, "alice", "sk-late")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !existing || again.ID != a.ID {
		t.Fatalf("expected existing account %q, got %q existing=%v", a.ID, again.ID, existing)
	}

	cmd, err := svc.Enqueue(ctx, a.ID, "scroll_up")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if cmd.Status != model.CommandQueued {
		t.Fatalf("expected queued, got %q", cmd.Status)
	}

	drained, err := svc.Poll(ctx, a.ID, "heartbeat")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(drained) != 1 || drained[0] != "scroll_up" {
		t.Fatalf("unexpected drain %v", drained)
	}

	h, err := svc.History(ctx, a.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Commands) != 1 || h.Commands[0].Status != model.CommandRunning {
		t.Fatalf("expected command running, got %+v", h.Commands)
	}

	drained, err = svc.Poll(ctx, a.ID, "heartbeat2")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(drained) != 0 {
		t.Fatalf("expected empty drain, got %v", drained)
	}

	h, _ = svc.History(ctx, a.ID)
	if len(h.Events) != 2 || h.Events[0].Text != "heartbeat" || h.Events[1].Text != "heartbeat2" {
		t.Fatalf("unexpected events %+v", h.Events)
	}
	acc, _ := svc.AccountDetails(ctx, a.ID)
	if acc.Credential != "" {
		t.Fatalf("credential must not change on re-registration")
	}
	if acc.LastEventAt == 0 {
		t.Fatalf("expected last event time stamped")
	}

	want := []string{hub.TypeCommandEnqueued, hub.TypeEvent, hub.TypeCommandsDrained, hub.TypeEvent}
	got := pub.types()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
}

func TestService_UnknownAccount(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Poll(ctx, "nope", "heartbeat"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Enqueue(ctx, "nope", "scroll_up"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AccountDetails(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.SaveURL(ctx, "nope", "m1", "https://example.com"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("nothing should be published for unknown accounts")
	}

	h, err := svc.History(ctx, "nope")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if h.History == nil || h.BrowserHistory == nil || h.Commands == nil || h.Events == nil {
		t.Fatalf("expected empty, non-nil lists: %+v", h)
	}
	if len(h.History)+len(h.BrowserHistory)+len(h.Commands)+len(h.Events) != 0 {
		t.Fatalf("expected empty history: %+v", h)
	}
}

func TestService_EnqueueValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _, _ := svc.Register(ctx, "bob", "")
	if _, err := svc.Enqueue(ctx, a.ID, "  "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestService_PollFIFO(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _, _ := svc.Register(ctx, "carol", "")

	want := []string{"acc:UP", "acc:DOWN", "acc:CLICK OK", "acc:TYPE hello"}
	for _, instr := range want {
		if _, err := svc.Enqueue(ctx, a.ID, instr); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	got, err := svc.Poll(ctx, a.ID, "tick")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("drained %v, want %v", got, want)
	}
}

func TestService_ConcurrentPollsDeliverOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _, _ := svc.Register(ctx, "dave", "")
	b, _, _ := svc.Register(ctx, "erin", "")

	const n = 50
	for i := 0; i < n; i++ {
		if _, err := svc.Enqueue(ctx, a.ID, fmt.Sprintf("a-%d", i)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if _, err := svc.Enqueue(ctx, b.ID, fmt.Sprintf("b-%d", i)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		for _, id := range []string{a.ID, b.ID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				drained, err := svc.Poll(ctx, id, "tick")
				if err != nil {
					t.Errorf("Poll: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				for _, instr := range drained {
					seen[instr]++
				}
			}(id)
		}
	}
	wg.Wait()

	if len(seen) != 2*n {
		t.Fatalf("expected %d distinct commands, got %d", 2*n, len(seen))
	}
	for instr, count := range seen {
		if count != 1 {
			t.Fatalf("%s delivered %d times", instr, count)
		}
	}
}

func TestService_PollHonoursContext(t *testing.T) {
	svc, _ := newTestService(t)
	a, _, _ := svc.Register(context.Background(), "frank", "")

	release, err := svc.locks.acquire(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.Poll(ctx, a.ID, "tick"); !errors.Is(err, model.ErrTimeout) {
		t.Fatalf("expected ErrTimeout while the account is locked, got %v", err)
	}
}

func TestService_SaveURLAndHistoryPartitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _, _ := svc.Register(ctx, "grace", "")

	if _, err := svc.SaveURL(ctx, a.ID, "", "https://example.com"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.SaveURL(ctx, a.ID, "m1", " "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	for _, u := range []string{"https://a.example", "https://b.example"} {
		if _, err := svc.SaveURL(ctx, a.ID, "m1", u); err != nil {
			t.Fatalf("SaveURL: %v", err)
		}
	}

	h, err := svc.History(ctx, a.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.History) != 0 {
		t.Fatalf("expected no mobile history, got %d", len(h.History))
	}
	if len(h.BrowserHistory) != 2 || h.BrowserHistory[0].Prompt != "https://a.example" || h.BrowserHistory[1].MachineID != "m1" {
		t.Fatalf("unexpected browser history %+v", h.BrowserHistory)
	}
}

func TestService_RegisterAnonymous(t *testing.T) {
	svc, _ := newTestService(t)
	acc, existing, err := svc.Register(context.Background(), "  ", "sk")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if existing || acc.DisplayName == "" || acc.Credential != "sk" {
		t.Fatalf("unexpected account %+v existing=%v", acc, existing)
	}
}
