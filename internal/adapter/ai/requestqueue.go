package ai

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Operation is a deferred provider call executed by the queue.
type Operation func(ctx domain.Context) (domain.ModelCallResult, error)

type settled struct {
	res domain.ModelCallResult
	err error
}

type task struct {
	ctx  domain.Context
	op   Operation
	done chan settled // buffered; settled exactly once
}

// RequestQueue bounds how many provider calls run concurrently from this
// process. Excess submissions wait in FIFO order; every submitted operation
// settles exactly once, and a panicking operation settles as a failure
// without crashing the drain loop.
type RequestQueue struct {
	mu      sync.Mutex
	pending []*task
	active  int
	limit   int
}

// NewRequestQueue constructs a queue with the given concurrency ceiling.
func NewRequestQueue(limit int) *RequestQueue {
	if limit <= 0 {
		limit = 1
	}
	return &RequestQueue{limit: limit}
}

// Submit enqueues op and blocks until it settles. Submission order is
// FIFO; completion order is not guaranteed once more than one task runs.
func (q *RequestQueue) Submit(ctx domain.Context, op Operation) (domain.ModelCallResult, error) {
	t := &task{ctx: ctx, op: op, done: make(chan settled, 1)}
	q.mu.Lock()
	q.pending = append(q.pending, t)
	depth := len(q.pending)
	q.mu.Unlock()
	observability.AIQueueDepth.Set(float64(depth))
	q.dispatch()
	s := <-t.done
	return s.res, s.err
}

// dispatch starts queued tasks while capacity remains. Safe to call from
// any goroutine; completions call it again to resume draining.
func (q *RequestQueue) dispatch() {
	for {
		q.mu.Lock()
		if q.active >= q.limit || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		q.mu.Unlock()
		go q.run(t)
	}
}

func (q *RequestQueue) run(t *task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("queued operation panicked", slog.Any("recover", rec))
			t.done <- settled{err: fmt.Errorf("op=queue.run: %v: %w", rec, domain.ErrInternal)}
		}
		q.mu.Lock()
		q.active--
		depth := len(q.pending)
		q.mu.Unlock()
		observability.AIQueueDepth.Set(float64(depth))
		go q.dispatch()
	}()
	res, err := t.op(t.ctx)
	t.done <- settled{res: res, err: err}
}

// Stats returns the current queue depth and active-call count.
func (q *RequestQueue) Stats() (pending, active int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), q.active
}
