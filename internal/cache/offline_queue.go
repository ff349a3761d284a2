package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/utils"
)

// QueueResult is delivered on a queued request's result channel once the
// request has been replayed, expired, or dropped.
type QueueResult struct {
	Body []byte
	Err  error
}

type queueEntry struct {
	id         string
	url        string
	opts       *RequestOptions
	enqueuedAt time.Time
	result     chan QueueResult
}

// replayFunc performs one replay attempt for a queued request.
type replayFunc func(ctx context.Context, url string, opts *RequestOptions) ([]byte, error)

// OfflineQueue holds requests that could not be sent while offline and
// replays them in FIFO submission order when connectivity returns. Each
// entry owns a buffered result channel standing in for the caller's pending
// promise.
type OfflineQueue struct {
	mu         sync.Mutex
	entries    []*queueEntry
	capacity   int
	maxAge     time.Duration
	processing bool
	replay     replayFunc
	logger     *logrus.Logger
	now        func() time.Time
}

// NewOfflineQueue creates a queue with the configured capacity and entry age
// limit. replay is invoked once per entry during a drain.
func NewOfflineQueue(cfg config.OfflineQueueConfig, replay replayFunc, logger *logrus.Logger) *OfflineQueue {
	return &OfflineQueue{
		capacity: cfg.Capacity,
		maxAge:   cfg.MaxAge(),
		replay:   replay,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (q *OfflineQueue) WithClock(now func() time.Time) *OfflineQueue {
	q.now = now
	return q
}

// Enqueue appends a request and returns the channel its result will be
// delivered on. A full queue rejects immediately.
func (q *OfflineQueue) Enqueue(url string, opts *RequestOptions) (<-chan QueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		return nil, &utils.QueueRejectedError{URL: url, Reason: "queue full"}
	}

	entry := &queueEntry{
		id:         uuid.New().String(),
		url:        url,
		opts:       opts,
		enqueuedAt: q.now(),
		result:     make(chan QueueResult, 1),
	}
	q.entries = append(q.entries, entry)

	q.logger.WithFields(logrus.Fields{
		"id":     entry.id,
		"url":    url,
		"queued": len(q.entries),
	}).Info("Queued offline request")

	return entry.result, nil
}

// Drain replays queued requests in FIFO order, stopping on the first
// failure so the remaining entries wait for the next online event. The
// processing guard makes concurrent drains from rapid-fire online events
// no-ops.
func (q *OfflineQueue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		return
	}
	q.processing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	for {
		entry, ok := q.pop()
		if !ok {
			return
		}

		if q.now().Sub(entry.enqueuedAt) > q.maxAge {
			entry.result <- QueueResult{Err: &utils.QueueRejectedError{URL: entry.url, Reason: "request expired in offline queue"}}
			continue
		}

		body, err := q.replay(ctx, entry.url, entry.opts)
		if err != nil {
			// Put the entry back at the head and stop; the next online
			// event resumes from here.
			q.pushFront(entry)
			q.logger.WithFields(logrus.Fields{
				"id":    entry.id,
				"url":   entry.url,
				"error": err.Error(),
			}).Warn("Offline queue drain stopped on failure")
			return
		}
		entry.result <- QueueResult{Body: body}
	}
}

// Len returns the number of pending requests.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear rejects every pending request, for shutdown and test teardown.
func (q *OfflineQueue) Clear() {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, entry := range entries {
		entry.result <- QueueResult{Err: &utils.QueueRejectedError{URL: entry.url, Reason: "queue cleared"}}
	}
}

func (q *OfflineQueue) pop() (*queueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil, false
	}
	entry := q.entries[0]
	q.entries = q.entries[1:]
	return entry, true
}

func (q *OfflineQueue) pushFront(entry *queueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]*queueEntry{entry}, q.entries...)
}
