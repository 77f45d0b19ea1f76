// Package queue accepts acquisition requests, runs the ingest pipeline for
// each under a hard concurrency ceiling, and exposes live per-item state.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kelpmedia/kelp/internal/config"
	"github.com/kelpmedia/kelp/internal/extractor"
	"github.com/kelpmedia/kelp/pkg/events"
	"github.com/kelpmedia/kelp/pkg/models"
)

// Ingestor is the pipeline contract the queue drives.
type Ingestor interface {
	Ingest(ctx context.Context, url string, opts models.IngestOptions, progress chan<- extractor.Progress) (*models.MediaRecord, error)
}

// Queue schedules ingest runs with FIFO admission under a concurrency
// bound. Admission order is FIFO; completion order is not.
type Queue struct {
	ingestor Ingestor
	bus      events.Bus
	logger   *zap.Logger
	sem      *semaphore.Weighted

	mu      sync.RWMutex
	items   map[uuid.UUID]*models.QueueItem
	active  map[uuid.UUID]context.CancelFunc
	backlog []uuid.UUID
	cond    *sync.Cond
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue with the given concurrency ceiling.
func New(ingestor Ingestor, maxConcurrent int, bus events.Bus, logger *zap.Logger) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ingestor: ingestor,
		bus:      bus,
		logger:   logger.Named("queue"),
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		items:    make(map[uuid.UUID]*models.QueueItem),
		active:   make(map[uuid.UUID]context.CancelFunc),
		ctx:      ctx,
		cancel:   cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the dispatch loop.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.dispatch()
}

// Stop cancels all in-flight runs and waits for workers to finish their
// cleanup.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.cancel()
	q.wg.Wait()
}

// Enqueue creates a Pending item for url and appends it to the backlog.
// Non-blocking; the backlog is unbounded.
func (q *Queue) Enqueue(url string, opts models.IngestOptions) models.QueueItem {
	item := &models.QueueItem{
		ID:        uuid.New(),
		URL:       url,
		Platform:  config.DetectPlatform(url),
		Status:    models.QueueStatusPending,
		Options:   opts,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.items[item.ID] = item
	snapshot := *item
	q.mu.Unlock()

	// Publish before the item is visible to the dispatcher so the queued
	// event always precedes the started event.
	q.publish(EventItemQueued, snapshot)

	q.mu.Lock()
	q.backlog = append(q.backlog, item.ID)
	q.mu.Unlock()
	q.cond.Signal()

	return snapshot
}

// EnqueueBatch enqueues several URLs in order, preserving FIFO admission.
func (q *Queue) EnqueueBatch(urls []string) []models.QueueItem {
	items := make([]models.QueueItem, 0, len(urls))
	for _, url := range urls {
		items = append(items, q.Enqueue(url, models.IngestOptions{}))
	}
	return items
}

// Cancel cancels an item. Pending items transition directly to Cancelled;
// Running items are signalled and transition once the pipeline's cleanup
// completes. Returns false for terminal or unknown ids.
func (q *Queue) Cancel(id uuid.UUID) bool {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok || item.Status.Terminal() {
		q.mu.Unlock()
		return false
	}

	if item.Status == models.QueueStatusPending {
		now := time.Now()
		item.Status = models.QueueStatusCancelled
		item.CompletedAt = &now
		snapshot := *item
		q.mu.Unlock()
		q.publish(EventItemCancelled, snapshot)
		return true
	}

	cancel := q.active[id]
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// Remove cancels (if needed) and forgets an item. Safe on terminal and
// unknown ids; returns whether the item existed.
func (q *Queue) Remove(id uuid.UUID) bool {
	q.Cancel(id)
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[id]; !ok {
		return false
	}
	delete(q.items, id)
	return true
}

// ClearCompleted drops all terminal items. Returns how many were dropped.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for id, item := range q.items {
		if item.Status.Terminal() {
			delete(q.items, id)
			count++
		}
	}
	return count
}

// ExpireStale drops terminal items that finished more than maxAge ago,
// bounding memory growth in long-running processes.
func (q *Queue) ExpireStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for id, item := range q.items {
		if item.Status.Terminal() && item.CompletedAt != nil && item.CompletedAt.Before(cutoff) {
			delete(q.items, id)
			count++
		}
	}
	return count
}

// Get returns a snapshot of one item.
func (q *Queue) Get(id uuid.UUID) (models.QueueItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	item, ok := q.items[id]
	if !ok {
		return models.QueueItem{}, false
	}
	return *item, true
}

// Items returns snapshots of all current items.
func (q *Queue) Items() []models.QueueItem {
	q.mu.RLock()
	defer q.mu.RUnlock()
	items := make([]models.QueueItem, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, *item)
	}
	return items
}

// PendingCount reports items awaiting admission.
func (q *Queue) PendingCount() int { return q.countByStatus(models.QueueStatusPending) }

// RunningCount reports items currently admitted. Never exceeds the
// configured ceiling.
func (q *Queue) RunningCount() int { return q.countByStatus(models.QueueStatusRunning) }

// CompleteCount reports successfully finished items.
func (q *Queue) CompleteCount() int { return q.countByStatus(models.QueueStatusComplete) }

// FailedCount reports failed items.
func (q *Queue) FailedCount() int { return q.countByStatus(models.QueueStatusFailed) }

func (q *Queue) countByStatus(status models.QueueStatus) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	count := 0
	for _, item := range q.items {
		if item.Status == status {
			count++
		}
	}
	return count
}

// dispatch pulls Pending ids in FIFO order and blocks only on a free
// concurrency slot. Runs are started independently; the loop does not wait
// for them to finish.
func (q *Queue) dispatch() {
	defer q.wg.Done()
	for {
		id, ok := q.nextPending()
		if !ok {
			return
		}

		// Skip ids whose item was cancelled or removed while queued.
		q.mu.RLock()
		item, exists := q.items[id]
		pending := exists && item.Status == models.QueueStatusPending
		q.mu.RUnlock()
		if !pending {
			continue
		}

		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return
		}

		q.wg.Add(1)
		go q.run(id)
	}
}

// nextPending blocks until the backlog is non-empty or the queue stops.
func (q *Queue) nextPending() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return uuid.Nil, false
	}
	id := q.backlog[0]
	q.backlog = q.backlog[1:]
	return id, true
}

// run executes one pipeline invocation. It is the item's single writer
// from admission to its terminal state.
func (q *Queue) run(id uuid.UUID) {
	defer q.wg.Done()
	defer q.sem.Release(1)

	runCtx, cancel := context.WithCancel(q.ctx)
	defer cancel()

	q.mu.Lock()
	item, ok := q.items[id]
	if !ok || item.Status != models.QueueStatusPending {
		q.mu.Unlock()
		return
	}
	now := time.Now()
	item.Status = models.QueueStatusRunning
	item.StartedAt = &now
	url, opts := item.URL, item.Options
	q.active[id] = cancel
	snapshot := *item
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.active, id)
		q.mu.Unlock()
	}()

	q.publish(EventItemStarted, snapshot)

	// The pipeline reports progress on this channel; the drain goroutine is
	// the only writer of the item's progress fields while the run is live.
	progressCh := make(chan extractor.Progress, 16)
	var drain sync.WaitGroup
	drain.Add(1)
	go func() {
		defer drain.Done()
		for p := range progressCh {
			q.applyProgress(id, p)
		}
	}()

	record, err := q.ingestor.Ingest(runCtx, url, opts, progressCh)
	close(progressCh)
	drain.Wait()

	q.finish(id, record, err, runCtx)
}

// applyProgress copies one extractor progress report onto the item.
func (q *Queue) applyProgress(id uuid.UUID, p extractor.Progress) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	item.BytesDownloaded = p.BytesDownloaded
	if p.TotalBytes > 0 {
		total := p.TotalBytes
		item.TotalBytes = &total
		item.PercentComplete = float64(p.BytesDownloaded) / float64(total) * 100
	}
	item.Speed = p.Speed
	if p.ETASeconds >= 0 {
		eta := p.ETASeconds
		item.ETASeconds = &eta
	}
	snapshot := *item
	q.mu.Unlock()

	q.publish(EventItemProgress, snapshot)
}

// finish records the run's terminal state and publishes it.
func (q *Queue) finish(id uuid.UUID, record *models.MediaRecord, err error, runCtx context.Context) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	now := time.Now()
	item.CompletedAt = &now

	eventType := ""
	switch {
	case err == nil:
		item.Status = models.QueueStatusComplete
		item.PercentComplete = 100
		item.RecordID = &record.ID
		item.LocalPath = record.LocalPath
		item.Title = record.Title
		item.Uploader = record.Uploader
		eventType = EventItemCompleted
	case runCtx.Err() != nil:
		item.Status = models.QueueStatusCancelled
		eventType = EventItemCancelled
	default:
		item.Status = models.QueueStatusFailed
		item.ErrorMessage = err.Error()
		eventType = EventItemFailed
	}
	snapshot := *item
	q.mu.Unlock()

	if err != nil && eventType == EventItemFailed {
		q.logger.Warn("ingest failed",
			zap.String("item_id", id.String()),
			zap.String("url", snapshot.URL),
			zap.Error(err))
	}
	q.publish(eventType, snapshot)
}

func (q *Queue) publish(eventType string, item models.QueueItem) {
	if q.bus == nil {
		return
	}
	q.bus.Publish(context.Background(), ItemEvent{Type: eventType, Item: item})
}
