package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidOrder помечает ошибки валидации входных данных: их не нужно
// ретраить, клиенту возвращается 400.
var ErrInvalidOrder = errors.New("invalid order input")

type Service interface {
	CreateOrder(ctx context.Context, customer CustomerInput, items []OrderItemInput, advisoryTotal float64, pickupTime *time.Time) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	AddOrderItem(ctx context.Context, orderID uuid.UUID, input OrderItemInput) (*OrderItem, error)
	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, upd OrderItemUpdate) (*OrderItem, error)
	DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
	GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
}

type service struct {
	orderRepo Repository
}

func NewService(orderRepo Repository) Service {
	return &service{orderRepo: orderRepo}
}

// CreateOrder проверяет позиции и создаёт заказ одной транзакцией.
// advisoryTotal — сумма, присланная клиентом; она носит справочный характер,
// итог всегда пересчитывается по позициям на сервере.
func (s *service) CreateOrder(ctx context.Context, customer CustomerInput, items []OrderItemInput, advisoryTotal float64, pickupTime *time.Time) (*Order, error) {
	if len(items) == 0 {
		log.Warn().Msg("service: attempt to create order with no items")
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	totalAmount := 0.0
	for i := range items {
		item := &items[i]

		if err := validateItemInput(item); err != nil {
			return nil, err
		}

		totalAmount += float64(item.Quantity) * item.Price
	}

	if advisoryTotal != 0 && advisoryTotal != totalAmount {
		log.Warn().
			Float64("advisory_total", advisoryTotal).
			Float64("computed_total", totalAmount).
			Msg("service: client-supplied total does not match line items, using computed value")
	}

	orderInput := &Order{
		TotalAmount: totalAmount,
		Status:      StatusPending,
		PickupTime:  pickupTime,
	}
	orderInput.Items = make([]OrderItem, len(items))
	for i, in := range items {
		orderInput.Items[i] = OrderItem{
			ItemID:   in.ItemID,
			ItemName: in.ItemName,
			Quantity: in.Quantity,
			Price:    in.Price,
		}
	}

	created, err := s.orderRepo.CreateOrder(ctx, customer, orderInput)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", created.ID).Float64("total_amount", created.TotalAmount).Msg("service: order created successfully")

	return created, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}

	return orders, nil
}

func (s *service) AddOrderItem(ctx context.Context, orderID uuid.UUID, input OrderItemInput) (*OrderItem, error) {
	if err := validateItemInput(&input); err != nil {
		return nil, err
	}

	item, err := s.orderRepo.AddOrderItem(ctx, orderID, input)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found, cannot add item")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to add order item in repository")
		return nil, fmt.Errorf("service: failed to add order item: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("item_id", item.ID).Msg("service: order item added")

	return item, nil
}

func (s *service) UpdateOrderItem(ctx context.Context, itemID uuid.UUID, upd OrderItemUpdate) (*OrderItem, error) {
	if upd.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidOrder)
	}
	if upd.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidOrder)
	}

	item, err := s.orderRepo.UpdateOrderItem(ctx, itemID, upd)
	if err != nil {
		if errors.Is(err, ErrOrderItemNotFound) {
			log.Warn().Stringer("item_id", itemID).Msg("service: order item not found for update")
			return nil, ErrOrderItemNotFound
		}

		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to update order item in repository")
		return nil, fmt.Errorf("service: failed to update order item: %w", err)
	}

	return item, nil
}

func (s *service) DeleteOrderItem(ctx context.Context, itemID uuid.UUID) error {
	err := s.orderRepo.DeleteOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrOrderItemNotFound) {
			log.Warn().Stringer("item_id", itemID).Msg("service: order item not found for delete")
			return ErrOrderItemNotFound
		}

		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to delete order item in repository")
		return fmt.Errorf("service: failed to delete order item: %w", err)
	}

	return nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	err := s.orderRepo.DeleteOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found for delete")
			return ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to delete order in repository")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Msg("service: order deleted")

	return nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidOrder, newStatus)
	}

	err := s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order status updated")

	return nil
}

func (s *service) GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	items, err := s.orderRepo.GetItemsByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found, cannot list items")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order items in repository")
		return nil, fmt.Errorf("service: failed to fetch order items: %w", err)
	}

	return items, nil
}

func validateItemInput(item *OrderItemInput) error {
	if item.ItemID == "" {
		return fmt.Errorf("%w: item reference cannot be empty", ErrInvalidOrder)
	}
	if item.ItemName == "" {
		return fmt.Errorf("%w: item name cannot be empty", ErrInvalidOrder)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: quantity for item %s must be greater than zero", ErrInvalidOrder, item.ItemID)
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: price for item %s cannot be negative", ErrInvalidOrder, item.ItemID)
	}
	return nil
}
