package sse

import (
	"log/slog"
	"sync"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	"github.com/151henry151/rompmusic-server/internal/id"
)

// subscriberBuffer bounds per-subscriber memory. A stalled subscriber loses
// coalesced file-progress events once the buffer fills, never lifecycle
// events.
const subscriberBuffer = 64

// Subscriber is one attached consumer of the progress feed.
type Subscriber struct {
	ID          string
	ConnectedAt time.Time
	events      chan *ProgressEvent
	done        chan struct{}
}

// Events returns the subscriber's ordered event feed.
func (s *Subscriber) Events() <-chan *ProgressEvent { return s.events }

// Done is closed when the broadcaster shuts the subscriber down.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Broadcaster fans scan progress out to subscribers. Publishing never blocks
// on subscriber read speed: each subscriber owns a bounded buffer, and when
// it overflows, queued file-progress events are evicted oldest-first to make
// room. Lifecycle events (run started, phase changes, terminal outcomes) are
// never dropped for an attached subscriber.
type Broadcaster struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	seq         uint64
	lastRun     *domain.ScanRun
	shutdown    bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger:      logger,
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe attaches a new consumer. Subscribers receive events published
// from this moment forward; LastRun covers anything they missed.
func (b *Broadcaster) Subscribe() (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:          subID,
		ConnectedAt: time.Now(),
		events:      make(chan *ProgressEvent, subscriberBuffer),
		done:        make(chan struct{}),
	}

	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		close(sub.done)
		return sub, nil
	}
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("progress subscriber attached",
		slog.String("subscriber_id", subID),
		slog.Int("total", total))
	return sub, nil
}

// Unsubscribe detaches a consumer and closes its channels.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	b.mu.Unlock()

	close(sub.done)

	b.logger.Debug("progress subscriber detached",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)))
}

// Publish emits an event to every attached subscriber. Only the scan
// orchestrator calls this, one goroutine at a time; sequence numbers are
// assigned here. Run lifecycle events update the last-known-run snapshot for
// late subscribers.
func (b *Broadcaster) Publish(kind EventKind, run *domain.ScanRun, payload any) {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return
	}
	if kind == EventRunStarted {
		b.seq = 0
	}
	b.seq++
	event := &ProgressEvent{
		RunID:   run.ID,
		Seq:     b.seq,
		Kind:    kind,
		At:      time.Now().UTC(),
		Payload: payload,
	}
	if kind != EventFileProgress && kind != EventHeartbeat {
		snapshot := *run
		b.lastRun = &snapshot
	}
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

// SetLastRun records the run snapshot without emitting an event. The scanner
// calls this when counters change between published events so LastRun stays
// current.
func (b *Broadcaster) SetLastRun(run *domain.ScanRun) {
	snapshot := *run
	b.mu.Lock()
	b.lastRun = &snapshot
	b.mu.Unlock()
}

// LastRun returns the most recent run snapshot, or nil when no scan has run
// since startup. Late subscribers use this to learn the current or terminal
// status they were not attached to observe.
func (b *Broadcaster) LastRun() *domain.ScanRun {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastRun == nil {
		return nil
	}
	snapshot := *b.lastRun
	return &snapshot
}

// SubscriberCount returns the number of attached subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Shutdown detaches every subscriber and stops accepting publishes.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[string]*Subscriber)
	b.shutdown = true
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	b.logger.Debug("progress broadcaster shut down")
}

// deliver enqueues an event for one subscriber without ever blocking the
// producer. Overflow policy: droppable events make room by evicting the
// oldest queued droppable event, or are themselves dropped when the queue
// holds only lifecycle events; lifecycle events evict all queued droppable
// events. Queue order is preserved in every case.
func (b *Broadcaster) deliver(sub *Subscriber, event *ProgressEvent) {
	select {
	case sub.events <- event:
		return
	default:
	}

	if event.Kind.isDroppable() {
		// Drain and requeue in arrival order, skipping the oldest queued
		// droppable event to make room. No event ever jumps ahead of an
		// older one.
		var kept []*ProgressEvent
		evicted := false
		for {
			select {
			case old := <-sub.events:
				if !evicted && old.Kind.isDroppable() {
					evicted = true
					continue
				}
				kept = append(kept, old)
				continue
			default:
			}
			break
		}
		for _, old := range kept {
			b.requeue(sub, old)
		}
		select {
		case sub.events <- event:
		default:
			// Queue is saturated with lifecycle events; the new
			// file-progress event loses instead.
		}
		return
	}

	// Lifecycle event with a full buffer: compact the queue down to its
	// lifecycle events, then append. Only the producer writes to the
	// channel, so the drained events all fit back.
	var keep []*ProgressEvent
	for {
		select {
		case old := <-sub.events:
			if !old.Kind.isDroppable() {
				keep = append(keep, old)
			}
			continue
		default:
		}
		break
	}
	for _, old := range keep {
		b.requeue(sub, old)
	}
	b.requeue(sub, event)

	b.logger.Warn("slow progress subscriber, coalesced file-progress events",
		slog.String("subscriber_id", sub.ID),
		slog.String("event_kind", string(event.Kind)))
}

// requeue pushes an event without blocking; drops it if the buffer is
// somehow still full (cannot happen unless the buffer is saturated with
// lifecycle events).
func (b *Broadcaster) requeue(sub *Subscriber, event *ProgressEvent) {
	select {
	case sub.events <- event:
	default:
		b.logger.Warn("subscriber buffer saturated with lifecycle events, dropping",
			slog.String("subscriber_id", sub.ID),
			slog.String("event_kind", string(event.Kind)))
	}
}
