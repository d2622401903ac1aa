package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils"
)

type OrderRepository interface {
	CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []models.OrderLine) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// ErrEmptyCart: the user's cart has no active items to order.
var ErrEmptyCart = errors.New("cart has no active items")

// ErrUnknownProduct: an order line references a product that does not exist.
var ErrUnknownProduct = errors.New("order line references unknown product")

const insertOrderQuery = `
		INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`

const insertOrderItemQuery = `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_order, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

// CreateOrderFromCart snapshots the cart's active items into an immutable
// order inside one transaction: the cart row is locked, current prices are
// read and frozen as price_at_order, total_amount is computed from the
// snapshots, and the cart items are deactivated so reusing the cart cannot
// duplicate the order. Any failure rolls back the whole thing.
func (r *orderRepository) CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var order *models.Order

	err := runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		var cartID uuid.UUID

		err := tx.QueryRowContext(dbCtx,
			`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
		if err != nil {
			return err
		}

		// FOR SHARE on products keeps a concurrent price update from
		// landing between this read and the commit.
		rows, err := tx.QueryContext(dbCtx, `
		SELECT ci.product_id, ci.quantity, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.is_active
		FOR SHARE OF p
	`, cartID)
		if err != nil {
			return fmt.Errorf("failed to snapshot cart items: %w", err)
		}

		defer rows.Close()

		var items []models.OrderItem

		for rows.Next() {

			var item models.OrderItem

			if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceAtOrder); err != nil {
				return fmt.Errorf("failed to scan cart item: %w", err)
			}

			items = append(items, item)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		if len(items) == 0 {
			return ErrEmptyCart
		}

		order, err = r.insertOrder(dbCtx, tx, userID, items)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(dbCtx, `
		UPDATE cart_items SET is_active = FALSE, updated_at = NOW()
		WHERE cart_id = $1 AND is_active
	`, cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CreateOrder builds an order from an explicit item list. Prices are read
// under FOR SHARE inside the same transaction that inserts the rows, so
// price_at_order cannot race a catalog price change. Duplicate products
// in the list fold into one item with summed quantity.
func (r *orderRepository) CreateOrder(ctx context.Context, userID uuid.UUID, lines []models.OrderLine) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var order *models.Order

	err := runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		merged := make([]models.OrderItem, 0, len(lines))
		index := make(map[uuid.UUID]int, len(lines))

		for _, line := range lines {
			if at, ok := index[line.ProductID]; ok {
				merged[at].Quantity += line.Quantity
				continue
			}

			index[line.ProductID] = len(merged)
			merged = append(merged, models.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		for i := range merged {

			var price float64

			err := tx.QueryRowContext(dbCtx,
				`SELECT price FROM products WHERE id = $1 FOR SHARE`, merged[i].ProductID).Scan(&price)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, merged[i].ProductID)
			}

			if err != nil {
				return fmt.Errorf("failed to read product price: %w", err)
			}

			merged[i].PriceAtOrder = price
		}

		var err error

		order, err = r.insertOrder(dbCtx, tx, userID, merged)

		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) insertOrder(ctx context.Context, tx *sql.Tx, userID uuid.UUID, items []models.OrderItem) (*models.Order, error) {

	order := &models.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	var total float64

	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = order.ID
		items[i].CreatedAt = order.CreatedAt
		total += items[i].PriceAtOrder * float64(items[i].Quantity)
	}

	order.TotalAmount = total
	order.Items = items

	if _, err := tx.ExecContext(ctx, insertOrderQuery,
		order.ID, order.UserID, order.Status, order.TotalAmount); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, insertOrderItemQuery,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{ID: id}

	query := `
		SELECT user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&order.UserID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	items, err := r.loadItems(dbCtx, id)
	if err != nil {
		return nil, err
	}

	order.Items = items

	return order, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var orders []models.Order

	for rows.Next() {

		var order models.Order

		order.UserID = userID

		if err := rows.Scan(&order.ID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan the orders: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.loadItems(dbCtx, orders[i].ID)
		if err != nil {
			return nil, err
		}

		orders[i].Items = items
	}

	return orders, nil
}

// UpdateOrderStatus is the only mutation an order admits after creation.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {

	query := `
		SELECT id, product_id, quantity, price_at_order, created_at
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {

		var item models.OrderItem

		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.PriceAtOrder, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = orderID

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
