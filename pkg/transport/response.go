package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"canteen/pkg/domain/model"
	"canteen/pkg/domain/service"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything not
// recognized is treated as a backend outage so the client can fall back
// to its last known state.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrOrderNotFound), errors.Is(err, model.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrStaffOnly):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrOrderIsEmpty),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrNegativePrice),
		errors.Is(err, service.ErrItemNameRequired),
		errors.Is(err, service.ErrCustomerRequired),
		errors.Is(err, service.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusServiceUnavailable, "remote_unavailable", "backend temporarily unavailable")
	}
}

type orderItemDTO struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	ReceiptNumber string         `json:"receiptNumber,omitempty"`
	UserID        string         `json:"userId"`
	CustomerName  string         `json:"customerName"`
	Items         []orderItemDTO `json:"items"`
	AmountCents   int64          `json:"amountCents"`
	Status        string         `json:"status"`
	StatusLabel   string         `json:"statusLabel"`
	Notes         string         `json:"notes,omitempty"`
	PlacedByStaff bool           `json:"placedByStaff"`
	PaymentMode   string         `json:"paymentMode"`
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	IsStaff     bool   `json:"isStaff"`
	IsAdmin     bool   `json:"isAdmin"`
}

func orderToDTO(order *model.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDTO{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return orderDTO{
		ID:            order.ID.String(),
		ReceiptNumber: order.ReceiptNumber,
		UserID:        order.UserID.String(),
		CustomerName:  order.CustomerName,
		Items:         items,
		AmountCents:   order.AmountCents,
		Status:        string(order.Status),
		StatusLabel:   order.Status.Label(),
		Notes:         order.Notes,
		PlacedByStaff: order.PlacedByStaff,
		PaymentMode:   string(order.PaymentMode),
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func ordersToDTO(orders []model.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, orderToDTO(&orders[i]))
	}
	return out
}

func userToDTO(user *model.User) userDTO {
	return userDTO{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		IsStaff:     user.IsStaff,
		IsAdmin:     user.IsAdmin,
	}
}
