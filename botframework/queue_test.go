// Copyright (c) Microsoft. All rights reserved.

package botframework_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bf "github.com/microsoft/botframework-go/botframework"
)

// mustDequeue retries transient nil results until an envelope arrives.
func mustDequeue(t *testing.T, ctx context.Context, q *bf.ActivityQueue) *bf.ActivityWithClaims {
	t.Helper()
	for {
		item, err := q.WaitAndDequeue(ctx)
		if err != nil {
			t.Fatalf("WaitAndDequeue: %v", err)
		}
		if item != nil {
			return item
		}
	}
}

func TestActivityQueue_FIFO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := bf.NewActivityQueue()
	identity := bf.NewAnonymousClaimsIdentity()

	const n = 50
	for i := 0; i < n; i++ {
		activity := &bf.Activity{Type: bf.ActivityTypeMessage, ID: fmt.Sprintf("a-%d", i)}
		if err := q.Enqueue(identity, activity); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if got := q.Len(); got != n {
		t.Fatalf("Len = %d, want %d", got, n)
	}

	for i := 0; i < n; i++ {
		item := mustDequeue(t, ctx, q)
		if want := fmt.Sprintf("a-%d", i); item.Activity.ID != want {
			t.Fatalf("dequeue %d: got %q, want %q", i, item.Activity.ID, want)
		}
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len after drain = %d, want 0", got)
	}
}

func TestActivityQueue_ConcurrentProducersNoLoss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := bf.NewActivityQueue()
	identity := bf.NewAnonymousClaimsIdentity()

	const producers = 32
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			activity := &bf.Activity{Type: bf.ActivityTypeMessage, ID: fmt.Sprintf("p-%d", i)}
			if err := q.Enqueue(identity, activity); err != nil {
				t.Errorf("enqueue %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, producers)
	for i := 0; i < producers; i++ {
		item := mustDequeue(t, ctx, q)
		if seen[item.Activity.ID] {
			t.Fatalf("duplicate delivery of %q", item.Activity.ID)
		}
		seen[item.Activity.ID] = true
	}
	if len(seen) != producers {
		t.Fatalf("received %d distinct items, want %d", len(seen), producers)
	}
}

func TestActivityQueue_EnqueueArguments(t *testing.T) {
	q := bf.NewActivityQueue()
	identity := bf.NewAnonymousClaimsIdentity()
	activity := &bf.Activity{Type: bf.ActivityTypeMessage}

	tests := []struct {
		name     string
		identity *bf.ClaimsIdentity
		activity *bf.Activity
		wantErr  bool
	}{
		{"nil identity", nil, activity, true},
		{"nil activity", identity, nil, true},
		{"valid", identity, activity, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := q.Enqueue(tc.identity, tc.activity)
			if tc.wantErr {
				if !errors.Is(err, bf.ErrInvalidArgument) {
					t.Fatalf("err = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestActivityQueue_CancelledWait(t *testing.T) {
	q := bf.NewActivityQueue()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.WaitAndDequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAndDequeue did not unblock on cancellation")
	}
}

func TestActivityQueue_CancelledContextBeatsBacklog(t *testing.T) {
	q := bf.NewActivityQueue()
	if err := q.Enqueue(bf.NewAnonymousClaimsIdentity(), &bf.Activity{Type: bf.ActivityTypeMessage, ID: "queued"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled consumer must not keep draining backlog.
	item, err := q.WaitAndDequeue(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if item != nil {
		t.Fatalf("item = %+v, want nil", item)
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("Len = %d, want the envelope left queued", got)
	}
}

func TestActivityQueue_BlocksUntilEnqueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := bf.NewActivityQueue()
	got := make(chan *bf.ActivityWithClaims, 1)
	go func() {
		got <- mustDequeue(t, ctx, q)
	}()

	// The consumer should be parked; give it a moment before producing.
	time.Sleep(20 * time.Millisecond)
	if err := q.Enqueue(bf.NewAnonymousClaimsIdentity(), &bf.Activity{Type: bf.ActivityTypeEvent, ID: "late"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case item := <-got:
		if item.Activity.ID != "late" {
			t.Fatalf("got %q, want %q", item.Activity.ID, "late")
		}
	case <-ctx.Done():
		t.Fatal("consumer never woke up")
	}
}

func TestBackgroundQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := bf.NewBackgroundQueue()
	if err := q.Enqueue(nil); !errors.Is(err, bf.ErrInvalidArgument) {
		t.Fatalf("nil work: err = %v, want ErrInvalidArgument", err)
	}

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if err := q.Enqueue(func(context.Context) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		var work bf.Task
		for work == nil {
			var err error
			work, err = q.WaitAndDequeue(ctx)
			if err != nil {
				t.Fatalf("WaitAndDequeue: %v", err)
			}
		}
		if err := work(ctx); err != nil {
			t.Fatalf("work %d: %v", i, err)
		}
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}
