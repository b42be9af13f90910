package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/digital-diner/backend/internal/order"
)

type CreateOrderItemPayload struct {
	MenuItemID string  `json:"menu_item_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	Price      float64 `json:"price" validate:"gte=0"`
}

type CreateOrderRequest struct {
	CustomerName  string                   `json:"customer_name" validate:"required"`
	CustomerEmail string                   `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string                   `json:"customer_phone"`
	TotalAmount   float64                  `json:"total_amount"` // справочно, сервер пересчитывает сам
	PickupTime    *time.Time               `json:"pickup_time,omitempty"`
	Items         []CreateOrderItemPayload `json:"items" validate:"required,min=1,dive"`
}

type AddOrderItemRequest struct {
	OrderID    string  `json:"order_id" validate:"required,uuid4"`
	MenuItemID string  `json:"menu_item_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	Price      float64 `json:"price" validate:"gte=0"`
}

type UpdateOrderItemRequest struct {
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Delete("/orders/{id}", h.handleDeleteOrder)

	router.Post("/order-items", h.handleAddOrderItem)
	router.Get("/order-items/{orderId}", h.handleGetOrderItems)
	router.Put("/order-items/{id}", h.handleUpdateOrderItem)
	router.Delete("/order-items/{id}", h.handleDeleteOrderItem)
}

// RegisterAdminRoutes вешает маршруты консоли управления заказами;
// авторизацию обеспечивает роутер.
func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Patch("/orders/{id}/status", h.handleUpdateOrderStatus)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	customer := order.CustomerInput{
		Name:  requestPayload.CustomerName,
		Email: requestPayload.CustomerEmail,
		Phone: requestPayload.CustomerPhone,
	}

	items := make([]order.OrderItemInput, len(requestPayload.Items))
	for i, it := range requestPayload.Items {
		items[i] = order.OrderItemInput{
			ItemID:   it.MenuItemID,
			ItemName: it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
	}

	createdOrder, err := h.service.CreateOrder(r.Context(), customer, items, requestPayload.TotalAmount, requestPayload.PickupTime)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create order via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to create order"))
		return
	}

	respondWithJSON(w, http.StatusCreated, createdOrder)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	foundOrder, err := h.service.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			log.Error().Err(err).Msg("Failed to get order via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to get order"))
		return
	}

	respondWithJSON(w, http.StatusOK, foundOrder)
}

func (h *OrderHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), orderID); err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			log.Error().Err(err).Msg("Failed to delete order via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to delete order"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

func (h *OrderHandler) handleAddOrderItem(w http.ResponseWriter, r *http.Request) {
	var requestPayload AddOrderItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	orderID, err := uuid.FromString(requestPayload.OrderID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order_id")
		return
	}

	item, err := h.service.AddOrderItem(r.Context(), orderID, order.OrderItemInput{
		ItemID:   requestPayload.MenuItemID,
		ItemName: requestPayload.Name,
		Quantity: requestPayload.Quantity,
		Price:    requestPayload.Price,
	})
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			log.Error().Err(err).Msg("Failed to add order item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to add order item"))
		return
	}

	respondWithJSON(w, http.StatusCreated, item)
}

func (h *OrderHandler) handleGetOrderItems(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "orderId")
	if !ok {
		return
	}

	items, err := h.service.GetItemsByOrderID(r.Context(), orderID)
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			log.Error().Err(err).Msg("Failed to get order items via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to get order items"))
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) handleUpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateOrderItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	item, err := h.service.UpdateOrderItem(r.Context(), itemID, order.OrderItemUpdate{
		Quantity: requestPayload.Quantity,
		Price:    requestPayload.Price,
	})
	if err != nil {
		if !errors.Is(err, order.ErrOrderItemNotFound) {
			log.Error().Err(err).Msg("Failed to update order item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to update order item"))
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *OrderHandler) handleDeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOrderItem(r.Context(), itemID); err != nil {
		if !errors.Is(err, order.ErrOrderItemNotFound) {
			log.Error().Err(err).Msg("Failed to delete order item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to delete order item"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order item deleted successfully"})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateOrderStatusRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	err := h.service.UpdateOrderStatus(r.Context(), orderID, order.OrderStatus(requestPayload.Status))
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) && !errors.Is(err, order.ErrInvalidOrder) {
			log.Error().Err(err).Msg("Failed to update order status via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to update order status"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order status updated"})
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, name)
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("param", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

// clientMessage переводит доменные ошибки в короткие клиентские сообщения,
// не раскрывая внутренние детали.
func clientMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, order.ErrOrderItemNotFound):
		return "Order item not found"
	case errors.Is(err, order.ErrInvalidOrder):
		return err.Error()
	default:
		return fallback
	}
}
