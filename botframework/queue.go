// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"fmt"
	"sync"
)

// ActivityWithClaims pairs an authenticated identity with one inbound
// activity. It is created at enqueue time and consumed exactly once by a
// dequeue; the queue owns it until then.
type ActivityWithClaims struct {
	ClaimsIdentity *ClaimsIdentity
	Activity       *Activity
}

// fifo is an unbounded, thread-safe FIFO with a wake signal for blocking
// consumers. The signal channel is a hint, not a count: a woken consumer may
// find the queue transiently empty when racing another consumer, in which
// case it retries. pop re-arms the signal while items remain so no wakeup is
// lost with multiple consumers.
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{signal: make(chan struct{}, 1)}
}

func (q *fifo[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *fifo[T]) pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return v, true
}

// waitAndPop blocks until an item is available or ctx is cancelled.
// Cancellation takes precedence over queued items: a stopping consumer must
// not keep draining backlog. ok is false with a nil error when the consumer
// lost a wakeup race; callers treat that as "try again", not "queue drained".
func (q *fifo[T]) waitAndPop(ctx context.Context) (v T, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	if v, ok := q.pop(); ok {
		return v, true, nil
	}
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case <-q.signal:
		v, ok := q.pop()
		return v, ok, nil
	}
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ActivityQueue is an unbounded FIFO of [ActivityWithClaims] envelopes
// connecting the HTTP ingestion layer to [HostedActivityService]. An enqueued
// envelope is delivered to exactly one dequeuer, exactly once, in enqueue
// order. Safe for arbitrary concurrent producers and consumers.
type ActivityQueue struct {
	q *fifo[*ActivityWithClaims]
}

// NewActivityQueue creates an empty [ActivityQueue]. One process-wide
// instance is shared between the async adapter and the hosted service.
func NewActivityQueue() *ActivityQueue {
	return &ActivityQueue{q: newFIFO[*ActivityWithClaims]()}
}

// Enqueue appends an envelope to the tail and wakes one waiting consumer.
// Non-blocking; safe for concurrent callers.
func (q *ActivityQueue) Enqueue(identity *ClaimsIdentity, activity *Activity) error {
	if identity == nil {
		return fmt.Errorf("%w: nil claims identity", ErrInvalidArgument)
	}
	if activity == nil {
		return fmt.Errorf("%w: nil activity", ErrInvalidArgument)
	}
	q.q.push(&ActivityWithClaims{ClaimsIdentity: identity, Activity: activity})
	return nil
}

// WaitAndDequeue blocks until an envelope is available or ctx is cancelled.
// Cancellation surfaces as ctx.Err() and takes precedence over queued
// envelopes. A nil envelope with a nil error means the caller lost a wakeup
// race and must retry; it never means the queue is permanently empty.
func (q *ActivityQueue) WaitAndDequeue(ctx context.Context) (*ActivityWithClaims, error) {
	v, ok, err := q.q.waitAndPop(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Len returns the number of envelopes currently queued.
func (q *ActivityQueue) Len() int { return q.q.len() }

// Task is a deferred unit of background work executed by
// [HostedTaskService].
type Task func(ctx context.Context) error

// BackgroundQueue is an unbounded FIFO of deferred work closures, with the
// same delivery guarantees as [ActivityQueue]. Used for fire-and-forget
// background jobs unrelated to activity processing.
type BackgroundQueue struct {
	q *fifo[Task]
}

// NewBackgroundQueue creates an empty [BackgroundQueue].
func NewBackgroundQueue() *BackgroundQueue {
	return &BackgroundQueue{q: newFIFO[Task]()}
}

// Enqueue appends a work item to the tail and wakes one waiting consumer.
func (q *BackgroundQueue) Enqueue(work Task) error {
	if work == nil {
		return fmt.Errorf("%w: nil work item", ErrInvalidArgument)
	}
	q.q.push(work)
	return nil
}

// WaitAndDequeue blocks until a work item is available or ctx is cancelled.
// A nil task with a nil error means "retry", as for [ActivityQueue].
func (q *BackgroundQueue) WaitAndDequeue(ctx context.Context) (Task, error) {
	v, ok, err := q.q.waitAndPop(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Len returns the number of work items currently queued.
func (q *BackgroundQueue) Len() int { return q.q.len() }
