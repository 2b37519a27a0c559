package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrQueueClosed is reported by tickets enqueued after the queue was closed.
var ErrQueueClosed = errors.New("write queue closed")

// batch is a set of pending writes flushed together. Later values for the same
// key replace earlier ones, so only the latest value of a key is written.
type batch struct {
	keys   []string
	values map[string][]byte
	errs   map[string]error
	done   chan struct{}
}

func newBatch() *batch {
	return &batch{
		values: make(map[string][]byte),
		errs:   make(map[string]error),
		done:   make(chan struct{}),
	}
}

// Ticket tracks a single enqueued write.
type Ticket struct {
	b   *batch
	key string
}

// Wait blocks until the write has been attempted and reports its outcome.
// A nil error means the value (or a newer value for the same key) landed in storage.
func (t Ticket) Wait(ctx context.Context) error {
	if t.b == nil {
		return nil
	}
	select {
	case <-t.b.done:
		return t.b.errs[t.key]
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the write has been attempted.
func (t Ticket) Done() <-chan struct{} {
	if t.b == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.b.done
}

// FailedTicket returns a completed ticket reporting err, for writes that never
// reached the queue.
func FailedTicket(key string, err error) Ticket {
	b := newBatch()
	b.keys = []string{key}
	b.errs[key] = err
	close(b.done)
	return Ticket{b: b, key: key}
}

// WriteQueue persists values in the background, in enqueue order, through a
// single writer. Callers never block on storage but can await any write.
type WriteQueue struct {
	kv  KV
	log logrus.FieldLogger

	mu       sync.Mutex
	open     *batch
	inflight *batch
	closed   bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewWriteQueue starts a queue writing to kv.
func NewWriteQueue(kv KV, logger logrus.FieldLogger) *WriteQueue {
	q := &WriteQueue{
		kv:      kv,
		log:     logger.WithField("component", "write_queue"),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules value to be written under key and returns immediately.
func (q *WriteQueue) Enqueue(key string, value []byte) Ticket {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.WithField("key", key).Warn("Write dropped, queue is closed")
		return FailedTicket(key, ErrQueueClosed)
	}
	if q.open == nil {
		q.open = newBatch()
	}
	b := q.open
	if _, pending := b.values[key]; !pending {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return Ticket{b: b, key: key}
}

// Flush waits until every write enqueued before the call has been attempted.
// It returns the joined errors of the failed writes.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	var pending []*batch
	if q.inflight != nil {
		pending = append(pending, q.inflight)
	}
	if q.open != nil {
		pending = append(pending, q.open)
	}
	q.mu.Unlock()

	var errs []error
	for _, b := range pending {
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		for _, key := range b.keys {
			if err := b.errs[key]; err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close drains pending writes and stops the writer. It is safe to call more than once.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stop)
	select {
	case <-q.stopped:
		q.log.Info("Write queue drained and stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *WriteQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.wake:
			q.drain()
		case <-q.stop:
			q.drain()
			return
		}
	}
}

// drain writes batches until nothing is pending.
func (q *WriteQueue) drain() {
	for {
		q.mu.Lock()
		b := q.open
		q.open = nil
		q.inflight = b
		q.mu.Unlock()

		if b == nil {
			return
		}
		q.write(b)

		// Flush sees the batch either in flight or done, never between the two.
		q.mu.Lock()
		close(b.done)
		q.inflight = nil
		q.mu.Unlock()
	}
}

func (q *WriteQueue) write(b *batch) {
	// Writes outlive the caller that enqueued them.
	ctx := context.Background()
	for _, key := range b.keys {
		if err := q.kv.Set(ctx, key, b.values[key]); err != nil {
			q.log.WithError(err).WithField("key", key).Error("Failed to persist value")
			b.errs[key] = err
		}
	}
	q.log.WithField("keys", len(b.keys)).Debug("Batch persisted")
}
