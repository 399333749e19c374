package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mbeckert/wavelink/internal/grouping"
	"github.com/mbeckert/wavelink/internal/player"
)

// fakeClient routes each member to a scripted behaviour.
type fakeClient struct {
	mu        sync.Mutex
	behave    map[string]func(ctx context.Context) error
	calls     map[string]int
	inflight  int
	maxFlight int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		behave: make(map[string]func(ctx context.Context) error),
		calls:  make(map[string]int),
	}
}

func (f *fakeClient) Send(ctx context.Context, deviceID string, _ Command) error {
	f.mu.Lock()
	f.calls[deviceID]++
	f.inflight++
	if f.inflight > f.maxFlight {
		f.maxFlight = f.inflight
	}
	fn := f.behave[deviceID]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f *fakeClient) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeClient) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxFlight
}

func succeed(_ context.Context) error { return nil }

func reject(_ context.Context) error {
	return fmt.Errorf("%w: volume out of range", player.ErrRejected)
}

func unreachable(_ context.Context) error {
	return fmt.Errorf("%w: connection refused", player.ErrUnreachable)
}

func blockUntilDeadline(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func testGroup() grouping.Group {
	return grouping.Group{MasterID: "m", SlaveIDs: []string{"s1", "s2"}}
}

func TestDispatch_AllSucceed(t *testing.T) {
	client := newFakeClient()
	d := NewDispatcher(client)

	res := d.Dispatch(context.Background(), testGroup(), Pause(), time.Second)

	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", res.Status, StatusSuccess)
	}
	if len(res.Members) != 3 {
		t.Fatalf("got %d member results, want 3", len(res.Members))
	}
	for id, m := range res.Members {
		if m.Outcome != OutcomeSuccess {
			t.Errorf("member %q outcome = %q, want success", id, m.Outcome)
		}
	}
	if res.DispatchID == "" {
		t.Error("expected non-empty dispatch ID")
	}
}

func TestDispatch_AllFail(t *testing.T) {
	client := newFakeClient()
	client.behave["m"] = unreachable
	client.behave["s1"] = unreachable
	client.behave["s2"] = reject

	d := NewDispatcher(client)
	res := d.Dispatch(context.Background(), testGroup(), Play(), time.Second)

	if res.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", res.Status, StatusFailed)
	}
}

func TestDispatch_PartialWithMixedOutcomes(t *testing.T) {
	// The canonical mixed case: master succeeds, s1 is rejected, s2
	// times out. Aggregate is Partial with three isolated outcomes, and
	// the dispatch completes as soon as s2's own deadline expires.
	client := newFakeClient()
	client.behave["m"] = succeed
	client.behave["s1"] = reject
	client.behave["s2"] = blockUntilDeadline

	d := NewDispatcher(client)

	timeout := 100 * time.Millisecond
	start := time.Now()
	res := d.Dispatch(context.Background(), testGroup(), SetVolume(0.5), timeout)
	elapsed := time.Since(start)

	if res.Status != StatusPartial {
		t.Errorf("Status = %q, want %q", res.Status, StatusPartial)
	}
	if len(res.Members) != 3 {
		t.Fatalf("got %d member results, want 3", len(res.Members))
	}

	if got := res.Members["m"].Outcome; got != OutcomeSuccess {
		t.Errorf("m outcome = %q, want success", got)
	}
	if got := res.Members["s1"].Outcome; got != OutcomeRejected {
		t.Errorf("s1 outcome = %q, want rejected", got)
	}
	if got := res.Members["s2"].Outcome; got != OutcomeTimeout {
		t.Errorf("s2 outcome = %q, want timeout", got)
	}

	// Bounded by the slowest member's own timeout, not the sum.
	if elapsed > 3*timeout {
		t.Errorf("dispatch took %v, want roughly one member timeout (%v)", elapsed, timeout)
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	// All three members block briefly; if sends were sequential the
	// fake would never observe more than one in flight.
	client := newFakeClient()
	slow := func(_ context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}
	client.behave["m"] = slow
	client.behave["s1"] = slow
	client.behave["s2"] = slow

	d := NewDispatcher(client)
	res := d.Dispatch(context.Background(), testGroup(), Pause(), time.Second)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", res.Status)
	}
	if got := client.maxConcurrent(); got != 3 {
		t.Errorf("max concurrent sends = %d, want 3", got)
	}
}

func TestDispatch_FailureDoesNotCancelSiblings(t *testing.T) {
	client := newFakeClient()
	client.behave["m"] = reject // fails immediately
	client.behave["s1"] = func(_ context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	}
	client.behave["s2"] = succeed

	d := NewDispatcher(client)
	res := d.Dispatch(context.Background(), testGroup(), Stop(), time.Second)

	if res.Status != StatusPartial {
		t.Errorf("Status = %q, want partial", res.Status)
	}
	// Every member was sent to despite the early failure.
	for _, id := range []string{"m", "s1", "s2"} {
		if client.callCount(id) != 1 {
			t.Errorf("member %q received %d sends, want 1", id, client.callCount(id))
		}
	}
	if got := res.Members["s1"].Outcome; got != OutcomeSuccess {
		t.Errorf("s1 outcome = %q, want success (not cancelled)", got)
	}
}

func TestCommand_Validate(t *testing.T) {
	if err := (Command{}).Validate(); err == nil {
		t.Error("expected error for empty action")
	}
	if err := SetVolume(0.3).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestAggregate(t *testing.T) {
	mk := func(outcomes ...Outcome) map[string]MemberResult {
		m := make(map[string]MemberResult, len(outcomes))
		for i, o := range outcomes {
			m[fmt.Sprintf("p%d", i)] = MemberResult{Outcome: o}
		}
		return m
	}

	tests := []struct {
		name string
		in   map[string]MemberResult
		want Status
	}{
		{name: "all success", in: mk(OutcomeSuccess, OutcomeSuccess), want: StatusSuccess},
		{name: "all failed", in: mk(OutcomeFailed, OutcomeTimeout), want: StatusFailed},
		{name: "mixed", in: mk(OutcomeSuccess, OutcomeRejected), want: StatusPartial},
		{name: "timeout counts as failure", in: mk(OutcomeSuccess, OutcomeTimeout), want: StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aggregate(tt.in); got != tt.want {
				t.Errorf("aggregate() = %q, want %q", got, tt.want)
			}
		})
	}
}
