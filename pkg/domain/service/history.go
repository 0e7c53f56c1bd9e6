package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"canteen/pkg/domain/model"
)

// OrderHistory is the customer-side view: the signed-in user's own orders,
// newest first, plus the one-shot "jump to receipt" cue. A deep link sets
// the cue before the list is loaded; the cue is consumed on the first
// successful load that actually contains the order and held otherwise.
type OrderHistory struct {
	users  model.UserRepository
	orders model.OrderRepository

	mu  sync.Mutex
	cue uuid.UUID
}

func NewOrderHistory(users model.UserRepository, orders model.OrderRepository) *OrderHistory {
	return &OrderHistory{users: users, orders: orders}
}

// SetReceiptCue arms the one-shot receipt flag.
func (h *OrderHistory) SetReceiptCue(orderID uuid.UUID) {
	h.mu.Lock()
	h.cue = orderID
	h.mu.Unlock()
}

// ListForUser resolves the user by email and returns their orders newest
// first. The second return value is the order whose receipt should be
// opened now; uuid.Nil when there is none. Consuming the cue clears it, so
// a repeated load does not re-open the receipt.
func (h *OrderHistory) ListForUser(ctx context.Context, email string) ([]model.Order, uuid.UUID, error) {
	user, err := h.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, uuid.Nil, err
	}

	orders, err := h.orders.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	open := uuid.Nil
	h.mu.Lock()
	if h.cue != uuid.Nil {
		for _, o := range orders {
			if o.ID == h.cue {
				open = h.cue
				h.cue = uuid.Nil
				break
			}
		}
	}
	h.mu.Unlock()

	return orders, open, nil
}
