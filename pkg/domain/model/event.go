package model

import "github.com/google/uuid"

type OrderPlaced struct {
	OrderID      uuid.UUID
	UserID       uuid.UUID
	CustomerName string
	AmountCents  int64
}

func (e OrderPlaced) Type() string { return "OrderPlaced" }

type OrderStatusChanged struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	OldStatus OrderStatus
	NewStatus OrderStatus
	ChangedBy uuid.UUID
}

func (e OrderStatusChanged) Type() string { return "OrderStatusChanged" }

type OrderDeleted struct {
	OrderID uuid.UUID
}

func (e OrderDeleted) Type() string { return "OrderDeleted" }

type UserSignedIn struct {
	UserID uuid.UUID
	Email  string
}

func (e UserSignedIn) Type() string { return "UserSignedIn" }
