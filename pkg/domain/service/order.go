package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"canteen/pkg/domain/model"
)

var (
	ErrOrderIsEmpty     = errors.New("cannot place an order without items")
	ErrInvalidQuantity  = errors.New("item quantity must be a positive number")
	ErrNegativePrice    = errors.New("item price cannot be negative")
	ErrItemNameRequired = errors.New("item name is required")
	ErrCustomerRequired = errors.New("order customer is required")
	ErrStaffOnly        = errors.New("operation is allowed for staff only")
)

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

type NewOrderInput struct {
	UserID        uuid.UUID
	CustomerName  string
	ReceiptNumber string
	Items         []model.OrderItem
	Notes         string
	PlacedByStaff bool
	PaymentMode   model.PaymentMode
}

type OrderService interface {
	PlaceOrder(ctx context.Context, in NewOrderInput) (*model.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, target model.OrderStatus, actor model.Actor) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) error
}

func NewOrderService(repo model.OrderRepository, dispatcher EventDispatcher) OrderService {
	return &orderService{repo: repo, dispatcher: dispatcher}
}

type orderService struct {
	repo       model.OrderRepository
	dispatcher EventDispatcher
}

func (s *orderService) PlaceOrder(ctx context.Context, in NewOrderInput) (*model.Order, error) {
	if in.UserID == uuid.Nil || in.CustomerName == "" {
		return nil, ErrCustomerRequired
	}
	if len(in.Items) == 0 {
		return nil, ErrOrderIsEmpty
	}

	var total int64
	for _, item := range in.Items {
		if item.Name == "" {
			return nil, ErrItemNameRequired
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if item.UnitPriceCents < 0 {
			return nil, ErrNegativePrice
		}
		total += item.LineAmountCents()
	}

	mode := in.PaymentMode
	if mode == "" {
		mode = model.PaymentUPI
	}

	orderID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:            orderID,
		ReceiptNumber: in.ReceiptNumber,
		UserID:        in.UserID,
		CustomerName:  in.CustomerName,
		Items:         in.Items,
		AmountCents:   total,
		Status:        model.StatusPending,
		Notes:         in.Notes,
		PlacedByStaff: in.PlacedByStaff,
		PaymentMode:   mode,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderPlaced{
		OrderID:      orderID,
		UserID:       in.UserID,
		CustomerName: in.CustomerName,
		AmountCents:  total,
	})
	return order, nil
}

func (s *orderService) Transition(ctx context.Context, orderID uuid.UUID, target model.OrderStatus, actor model.Actor) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, target, actor) {
		return nil, model.ErrInvalidTransition
	}

	oldStatus := order.Status
	order.Status = target
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderStatusChanged{
		OrderID:   orderID,
		UserID:    order.UserID,
		OldStatus: oldStatus,
		NewStatus: target,
		ChangedBy: actor.UserID,
	})
	return order, nil
}

// DeleteOrder removes the row entirely. Unlike a transition this is
// irreversible; the board re-issues it once if the row is still visible
// after the next reload.
func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) error {
	if !actor.IsStaff && !actor.IsAdmin {
		return ErrStaffOnly
	}

	if _, err := s.repo.Find(ctx, orderID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.OrderDeleted{OrderID: orderID})
	return nil
}
