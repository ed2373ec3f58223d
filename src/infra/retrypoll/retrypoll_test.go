package retrypoll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoResolvesTrueAfterPendingRun(t *testing.T) {
	responses := []Outcome{Pending, Pending, Pending, Pending, Pending, Applied}
	calls := 0

	applied, err := Do(context.Background(), func(ctx context.Context) (Outcome, error) {
		out := responses[calls]
		calls++
		return out, nil
	}, DefaultRetries, time.Millisecond)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !applied {
		t.Fatal("expected command to be applied after five pendings and a success")
	}
	if calls != 6 {
		t.Errorf("expected 6 attempts, got %d", calls)
	}
}

func TestDoResolvesFalseWhenBudgetExhausted(t *testing.T) {
	calls := 0

	applied, err := Do(context.Background(), func(ctx context.Context) (Outcome, error) {
		calls++
		return Pending, nil
	}, DefaultRetries, time.Millisecond)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if applied {
		t.Fatal("expected soft failure after exhausting the attempt budget")
	}
	// Initial attempt plus five retries; nothing further is sent.
	if calls != 6 {
		t.Errorf("expected 6 attempts, got %d", calls)
	}
}

func TestDoStopsImmediatelyOnHardError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	applied, err := Do(context.Background(), func(ctx context.Context) (Outcome, error) {
		calls++
		return Pending, boom
	}, DefaultRetries, time.Millisecond)

	if !errors.Is(err, boom) {
		t.Fatalf("expected hard error, got %v", err)
	}
	if applied {
		t.Fatal("hard errors must not report applied")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestDoHonorsContextCancellationBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var applied bool
	var err error
	go func() {
		applied, err = Do(ctx, func(ctx context.Context) (Outcome, error) {
			return Pending, nil
		}, DefaultRetries, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if applied {
		t.Fatal("cancelled operation must not report applied")
	}
}
