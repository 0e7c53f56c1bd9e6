package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("status change not permitted from current state")
	ErrConflict          = errors.New("order has been modified by another transaction")
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Label is the customer-facing name of a status.
func (s OrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "awaiting confirmation"
	case StatusAccepted:
		return "in preparation"
	case StatusCompleted:
		return "done"
	case StatusCancelled:
		return "cancelled"
	}
	return string(s)
}

type PaymentMode string

const (
	PaymentUPI  PaymentMode = "upi"
	PaymentCash PaymentMode = "cash"
	PaymentCard PaymentMode = "card"
)

// Actor identifies who is requesting a status change.
type Actor struct {
	UserID  uuid.UUID
	IsStaff bool
	IsAdmin bool
}

// Targets reachable by staff. Leaving a completed order is an admin
// correction path and is handled separately in AllowedTargets.
var staffTargets = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusCompleted, StatusPending, StatusCancelled},
	StatusCancelled: {StatusAccepted},
}

var adminCompletedTargets = []OrderStatus{StatusPending, StatusAccepted, StatusCancelled}

// AllowedTargets returns the statuses the actor may move an order to from
// the given status. Customers may trigger no transition at all; an order
// enters the lifecycle as pending and is driven by staff from there.
func AllowedTargets(from OrderStatus, actor Actor) []OrderStatus {
	if from == StatusCompleted {
		if actor.IsAdmin {
			return adminCompletedTargets
		}
		return nil
	}
	if !actor.IsStaff && !actor.IsAdmin {
		return nil
	}
	return staffTargets[from]
}

func CanTransition(from, to OrderStatus, actor Actor) bool {
	for _, t := range AllowedTargets(from, actor) {
		if t == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uuid.UUID
	ReceiptNumber string // human-facing id generated at checkout, display only
	UserID        uuid.UUID
	CustomerName  string
	Items         []OrderItem
	AmountCents   int64
	Status        OrderStatus
	Notes         string
	PlacedByStaff bool
	PaymentMode   PaymentMode
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Items are fixed at creation time; only status and notes change afterwards.
type OrderItem struct {
	Name           string
	Quantity       int
	UnitPriceCents int64
}

func (i OrderItem) LineAmountCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) // newest first
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}
