package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/metrics"
	"github.com/shopsphere/commerce-core/internal/models"
	repository "github.com/shopsphere/commerce-core/internal/repositories"
)

// OrderService owns Order and OrderItem, and clears cart items as a side
// effect of checkout. Orders are immutable after creation except Status.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, productRepo: productRepo}
}

// CreateOrder converts either the user's cart (empty item list) or an
// explicit item list into an order. All validation happens before any
// mutation; the order and its price snapshots are written atomically.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {

	if len(req.Items) == 0 {
		return s.createFromCart(ctx, userID)
	}

	lines := make([]models.OrderLine, 0, len(req.Items))

	for _, item := range req.Items {

		if item.Quantity <= 0 {
			return nil, appErrors.InvalidQuantityError("Quantity must be a positive integer")
		}

		product, err := s.productRepo.Resolve(ctx, item.Product)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ProductNotFoundError("Product not found: " + item.Product).WithError(err)
			}

			return nil, appErrors.DatabaseError("Failed to resolve product").WithError(err)
		}

		lines = append(lines, models.OrderLine{ProductID: product.ID, Quantity: item.Quantity})
	}

	order, err := s.orderRepo.CreateOrder(ctx, userID, lines)
	if err != nil {
		return nil, s.mapCreateError(err)
	}

	return order, nil
}

func (s *OrderService) createFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.CreateOrderFromCart(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.CartNotFoundError("Cart not found").WithError(err)
		}

		return nil, s.mapCreateError(err)
	}

	return order, nil
}

func (s *OrderService) mapCreateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmptyCart):
		return appErrors.BadRequestError("Cannot create order with empty cart").WithError(err)
	case errors.Is(err, repository.ErrUnknownProduct):
		return appErrors.ProductNotFoundError("Product not found").WithError(err)
	case errors.Is(err, repository.ErrTxConflict):
		metrics.ObserveTxConflict()
		return appErrors.ConcurrencyConflictError("Order creation conflicted, please retry").WithError(err)
	default:
		return appErrors.DatabaseError("Failed to create order").WithError(err)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.OrderNotFoundError("Order not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	// another user's order reads as absent, not forbidden
	if order.UserID != userID {
		return nil, appErrors.OrderNotFoundError("Order not found")
	}

	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {

	orders, err := s.orderRepo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, nil
}

// UpdateOrderStatus persists a status transition. Transition validity is
// decided by the caller; this core only rejects unknown statuses.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, userID, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {

	if !status.IsValid() {
		return nil, appErrors.ValidationError("Unknown order status: " + string(status))
	}

	if _, err := s.GetOrder(ctx, userID, id); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.OrderNotFoundError("Order not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update order status").WithError(err)
	}

	return s.GetOrder(ctx, userID, id)
}
