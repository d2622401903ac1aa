// Package mocks provides testify mocks for the repository interfaces,
// used by the service tests.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	Cleanup(func())
	mock.TestingT
}

type CartRepository struct {
	mock.Mock
}

func NewCartRepository(t testingT) *CartRepository {
	m := &CartRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *CartRepository) GetOrCreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *CartRepository) GetCartByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *CartRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	args := m.Called(ctx, cartID, productID, quantity)

	return args.Error(0)
}

func (m *CartRepository) DeactivateItem(ctx context.Context, cartID, productID uuid.UUID) error {
	args := m.Called(ctx, cartID, productID)

	return args.Error(0)
}

func (m *CartRepository) MergeCarts(ctx context.Context, cartCode string, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, cartCode, userID)

	return args.Bool(0), args.Error(1)
}

type ProductRepository struct {
	mock.Mock
}

func NewProductRepository(t testingT) *ProductRepository {
	m := &ProductRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *ProductRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)

	if product := args.Get(0); product != nil {
		return product.(*models.Product), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *ProductRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)

	if product := args.Get(0); product != nil {
		return product.(*models.Product), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *ProductRepository) Resolve(ctx context.Context, ref string) (*models.Product, error) {
	args := m.Called(ctx, ref)

	if product := args.Get(0); product != nil {
		return product.(*models.Product), args.Error(1)
	}

	return nil, args.Error(1)
}

type OrderRepository struct {
	mock.Mock
}

func NewOrderRepository(t testingT) *OrderRepository {
	m := &OrderRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *OrderRepository) CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, userID)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *OrderRepository) CreateOrder(ctx context.Context, userID uuid.UUID, lines []models.OrderLine) (*models.Order, error) {
	args := m.Called(ctx, userID, lines)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *OrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	args := m.Called(ctx, userID)

	if orders := args.Get(0); orders != nil {
		return orders.([]models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

type ReviewRepository struct {
	mock.Mock
}

func NewReviewRepository(t testingT) *ReviewRepository {
	m := &ReviewRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *ReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)

	return args.Error(0)
}

func (m *ReviewRepository) UpdateReview(ctx context.Context, id, userID uuid.UUID, rating int, comment string) (*models.Review, error) {
	args := m.Called(ctx, id, userID, rating, comment)

	if review := args.Get(0); review != nil {
		return review.(*models.Review), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *ReviewRepository) DeleteReview(ctx context.Context, id, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, id, userID)

	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *ReviewRepository) GetRating(ctx context.Context, productID uuid.UUID) (*models.ProductRating, error) {
	args := m.Called(ctx, productID)

	if rating := args.Get(0); rating != nil {
		return rating.(*models.ProductRating), args.Error(1)
	}

	return nil, args.Error(1)
}

type RateLimitRepository struct {
	mock.Mock
}

func NewRateLimitRepository(t testingT) *RateLimitRepository {
	m := &RateLimitRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *RateLimitRepository) CheckCartRateLimit(ctx context.Context, ownerKey string) (bool, int, error) {
	args := m.Called(ctx, ownerKey)

	return args.Bool(0), args.Int(1), args.Error(2)
}
