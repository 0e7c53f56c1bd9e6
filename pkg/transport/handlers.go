package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"canteen/pkg/domain/model"
	"canteen/pkg/domain/service"
)

type Handler struct {
	accounts service.AccountService
	orders   service.OrderService
	board    *service.OrderBoard
	history  *service.OrderHistory
	alerts   *service.AlertSettings
}

func Router(
	accounts service.AccountService,
	orders service.OrderService,
	board *service.OrderBoard,
	history *service.OrderHistory,
	alerts *service.AlertSettings,
) http.Handler {
	handler := &Handler{
		accounts: accounts,
		orders:   orders,
		board:    board,
		history:  history,
		alerts:   alerts,
	}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/signin", handler.signIn).Methods(http.MethodPost)
	s.HandleFunc("/orders", handler.placeOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}/status", handler.changeStatus).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}", handler.deleteOrder).Methods(http.MethodDelete)
	s.HandleFunc("/board", handler.getBoard).Methods(http.MethodGet)
	s.HandleFunc("/users/{email}/orders", handler.listUserOrders).Methods(http.MethodGet)
	s.HandleFunc("/alerts/settings", handler.updateAlertSettings).Methods(http.MethodPut)

	return logMiddleware(r)
}

type signInRequest struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	user, err := h.accounts.EnsureUser(r.Context(), model.Identity{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userToDTO(user))
}

type placeOrderRequest struct {
	CustomerName  string         `json:"customerName"`
	ReceiptNumber string         `json:"receiptNumber"`
	Notes         string         `json:"notes"`
	PaymentMode   string         `json:"paymentMode"`
	PlacedByStaff bool           `json:"placedByStaff"`
	Items         []orderItemDTO `json:"items"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.OrderItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	customer := req.CustomerName
	if customer == "" {
		customer = user.DisplayName
	}

	order, err := h.orders.PlaceOrder(r.Context(), service.NewOrderInput{
		UserID:        user.ID,
		CustomerName:  customer,
		ReceiptNumber: req.ReceiptNumber,
		Items:         items,
		Notes:         req.Notes,
		PlacedByStaff: req.PlacedByStaff && (user.IsStaff || user.IsAdmin),
		PaymentMode:   model.PaymentMode(req.PaymentMode),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToDTO(order))
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	target := model.OrderStatus(req.Status)
	if !target.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown status")
		return
	}

	order, err := h.orders.Transition(r.Context(), orderID, target, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToDTO(order))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), orderID, actor); err != nil {
		writeServiceError(w, err)
		return
	}
	h.board.TrackDelete(orderID)
	w.WriteHeader(http.StatusNoContent)
}

type boardResponse struct {
	Pending   []orderDTO `json:"pending"`
	Accepted  []orderDTO `json:"accepted"`
	Completed []orderDTO `json:"completed"`
	Cancelled []orderDTO `json:"cancelled"`
	LoadedAt  time.Time  `json:"loadedAt"`
	Stale     bool       `json:"stale"`
}

func (h *Handler) getBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r); !ok {
		return
	}

	snap := h.board.Snapshot()
	writeJSON(w, http.StatusOK, boardResponse{
		Pending:   ordersToDTO(snap.Pending),
		Accepted:  ordersToDTO(snap.Accepted),
		Completed: ordersToDTO(snap.Completed),
		Cancelled: ordersToDTO(snap.Cancelled),
		LoadedAt:  snap.LoadedAt,
		Stale:     snap.Err != nil,
	})
}

type historyResponse struct {
	Orders      []orderDTO `json:"orders"`
	OpenReceipt string     `json:"openReceipt,omitempty"`
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	if receipt := r.URL.Query().Get("receipt"); receipt != "" {
		if id, err := uuid.Parse(receipt); err == nil {
			h.history.SetReceiptCue(id)
		}
	}

	orders, open, err := h.history.ListForUser(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := historyResponse{Orders: ordersToDTO(orders)}
	if open != uuid.Nil {
		resp.OpenReceipt = open.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type alertSettingsRequest struct {
	Enabled   *bool `json:"enabled"`
	Sound     *bool `json:"sound"`
	Vibration *bool `json:"vibration"`
}

type alertSettingsResponse struct {
	Enabled   bool `json:"enabled"`
	Sound     bool `json:"sound"`
	Vibration bool `json:"vibration"`
}

func (h *Handler) updateAlertSettings(w http.ResponseWriter, r *http.Request) {
	var req alertSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.Enabled != nil {
		h.alerts.SetEnabled(*req.Enabled)
	}
	if req.Sound != nil {
		h.alerts.SetSound(*req.Sound)
	}
	if req.Vibration != nil {
		h.alerts.SetVibration(*req.Vibration)
	}

	enabled, sound, vibration := h.alerts.Snapshot()
	writeJSON(w, http.StatusOK, alertSettingsResponse{Enabled: enabled, Sound: sound, Vibration: vibration})
}

// requireUser resolves the caller from the X-Actor-Email header.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	email := r.Header.Get("X-Actor-Email")
	if email == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "X-Actor-Email header is required")
		return nil, false
	}
	user, err := h.accounts.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
			return nil, false
		}
		writeServiceError(w, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return model.Actor{}, false
	}
	return model.Actor{UserID: user.ID, IsStaff: user.IsStaff, IsAdmin: user.IsAdmin}, true
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
