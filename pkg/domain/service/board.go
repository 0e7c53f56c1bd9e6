package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"canteen/pkg/domain/model"
)

// Notifier receives one call per order that appears in the pending bucket
// between two consecutive reloads.
type Notifier interface {
	NewPendingOrder(orderID uuid.UUID, customerName string)
}

// BoardSnapshot partitions every known order by status. The four buckets
// are a total, disjoint cover of the loaded set. Err carries the last
// failed load; the buckets then still hold the previous successful load.
type BoardSnapshot struct {
	Pending   []model.Order
	Accepted  []model.Order
	Completed []model.Order
	Cancelled []model.Order
	LoadedAt  time.Time
	Err       error
}

type deleteWatch struct {
	requestedAt time.Time
	retried     bool
}

// OrderBoard keeps the staff view of all orders fresh. It is driven by an
// explicit invalidation contract: every change signal is followed, after a
// settle delay, by a full reload and re-partition. There is no incremental
// update; the change feed carries no trusted payload.
type OrderBoard struct {
	repo     model.OrderRepository
	notifier Notifier
	settle   time.Duration
	grace    time.Duration

	mu         sync.Mutex
	snap       BoardSnapshot
	pendingIDs map[uuid.UUID]struct{}
	deletes    map[uuid.UUID]*deleteWatch
	loaded     bool
}

func NewOrderBoard(repo model.OrderRepository, notifier Notifier, settle, deleteGrace time.Duration) *OrderBoard {
	return &OrderBoard{
		repo:       repo,
		notifier:   notifier,
		settle:     settle,
		grace:      deleteGrace,
		pendingIDs: make(map[uuid.UUID]struct{}),
		deletes:    make(map[uuid.UUID]*deleteWatch),
	}
}

// TrackDelete records that a hard delete was issued for the order. If a
// later reload still lists the id past the grace period, the delete is
// re-issued exactly once. Best effort only, not a transactional guarantee.
func (b *OrderBoard) TrackDelete(orderID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes[orderID] = &deleteWatch{requestedAt: time.Now().UTC()}
}

// Reload fetches every order and swaps all four buckets in one step.
// Records missing identity or carrying an unknown status are discarded.
// On a fetch failure the previous buckets stay available.
func (b *OrderBoard) Reload(ctx context.Context) error {
	orders, err := b.repo.ListAll(ctx)
	if err != nil {
		b.mu.Lock()
		b.snap.Err = err
		b.mu.Unlock()
		return err
	}

	next := BoardSnapshot{LoadedAt: time.Now().UTC()}
	nextPending := make(map[uuid.UUID]struct{})
	present := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		if o.ID == uuid.Nil || !o.Status.Valid() {
			continue
		}
		present[o.ID] = struct{}{}
		switch o.Status {
		case model.StatusPending:
			next.Pending = append(next.Pending, o)
			nextPending[o.ID] = struct{}{}
		case model.StatusAccepted:
			next.Accepted = append(next.Accepted, o)
		case model.StatusCompleted:
			next.Completed = append(next.Completed, o)
		case model.StatusCancelled:
			next.Cancelled = append(next.Cancelled, o)
		}
	}

	b.mu.Lock()
	var fresh []model.Order
	if b.loaded {
		for _, o := range next.Pending {
			if _, seen := b.pendingIDs[o.ID]; !seen {
				fresh = append(fresh, o)
			}
		}
	}
	retry := b.reapDeletesLocked(present)
	b.snap = next
	b.pendingIDs = nextPending
	b.loaded = true
	b.mu.Unlock()

	for _, id := range retry {
		_ = b.repo.Delete(ctx, id)
	}
	if b.notifier != nil {
		for _, o := range fresh {
			b.notifier.NewPendingOrder(o.ID, o.CustomerName)
		}
	}
	return nil
}

// reapDeletesLocked drops watches for rows that are gone and returns the
// ids whose delete should be re-issued now.
func (b *OrderBoard) reapDeletesLocked(present map[uuid.UUID]struct{}) []uuid.UUID {
	var retry []uuid.UUID
	now := time.Now().UTC()
	for id, w := range b.deletes {
		if _, still := present[id]; !still {
			delete(b.deletes, id)
			continue
		}
		if w.retried {
			delete(b.deletes, id)
			continue
		}
		if now.Sub(w.requestedAt) >= b.grace {
			w.retried = true
			retry = append(retry, id)
		}
	}
	return retry
}

// Snapshot returns a copy of the current partition.
func (b *OrderBoard) Snapshot() BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snap
	snap.Pending = append([]model.Order(nil), b.snap.Pending...)
	snap.Accepted = append([]model.Order(nil), b.snap.Accepted...)
	snap.Completed = append([]model.Order(nil), b.snap.Completed...)
	snap.Cancelled = append([]model.Order(nil), b.snap.Cancelled...)
	return snap
}

// Watch consumes change signals until the context ends or the channel
// closes. Signals arriving while a reload is in flight collapse into the
// next cycle; each processed signal waits the settle delay first.
func (b *OrderBoard) Watch(ctx context.Context, changes <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}

		timer := time.NewTimer(b.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		// collapse signals that piled up during the settle window
	drain:
		for {
			select {
			case _, ok := <-changes:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}

		_ = b.Reload(ctx)
	}
}
