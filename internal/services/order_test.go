package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	repository "github.com/shopsphere/commerce-core/internal/repositories"
	"github.com/shopsphere/commerce-core/internal/repositories/mocks"
	service "github.com/shopsphere/commerce-core/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrderServiceTest(t *testing.T) (*service.OrderService, *mocks.OrderRepository, *mocks.ProductRepository) {
	t.Helper()

	mockOrderRepo := mocks.NewOrderRepository(t)
	mockProductRepo := mocks.NewProductRepository(t)
	orderService := service.NewOrderService(mockOrderRepo, mockProductRepo)

	return orderService, mockOrderRepo, mockProductRepo
}

func TestCreateOrderService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()
	product := &models.Product{ID: productID, Slug: "blue-mug", Price: 12.50}

	t.Run("Success - Empty Body Orders The Cart", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		expected := &models.Order{ID: uuid.New(), UserID: userID, Status: models.OrderStatusPending, TotalAmount: 25.0}
		mockOrderRepo.On("CreateOrderFromCart", ctx, userID).Return(expected, nil).Once()

		// Act
		order, err := orderService.CreateOrder(ctx, userID, &models.CreateOrderRequest{})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, expected.ID, order.ID)
		assert.Equal(t, 25.0, order.TotalAmount)
	})

	t.Run("Success - Explicit Item List", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, mockProductRepo := setupOrderServiceTest(t)
		expected := &models.Order{ID: uuid.New(), UserID: userID, TotalAmount: 25.0}

		mockProductRepo.On("Resolve", ctx, "blue-mug").Return(product, nil).Once()
		mockOrderRepo.On("CreateOrder", ctx, userID,
			[]models.OrderLine{{ProductID: productID, Quantity: 2}}).Return(expected, nil).Once()

		req := &models.CreateOrderRequest{Items: []models.OrderItemRequest{{Product: "blue-mug", Quantity: 2}}}

		// Act
		order, err := orderService.CreateOrder(ctx, userID, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, expected.ID, order.ID)
	})

	t.Run("Failure - No Cart", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		mockOrderRepo.On("CreateOrderFromCart", ctx, userID).Return(nil, sql.ErrNoRows).Once()

		// Act
		order, err := orderService.CreateOrder(ctx, userID, &models.CreateOrderRequest{})

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCartNotFound, appErr.Code)
	})

	t.Run("Failure - Empty Cart", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		mockOrderRepo.On("CreateOrderFromCart", ctx, userID).Return(nil, repository.ErrEmptyCart).Once()

		// Act
		order, err := orderService.CreateOrder(ctx, userID, &models.CreateOrderRequest{})

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
	})

	t.Run("Failure - Invalid Quantity Stops Before Any Repo Call", func(t *testing.T) {
		// Arrange
		orderService, _, _ := setupOrderServiceTest(t)
		req := &models.CreateOrderRequest{Items: []models.OrderItemRequest{{Product: "blue-mug", Quantity: 0}}}

		// Act
		order, err := orderService.CreateOrder(ctx, userID, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeInvalidQuantity, appErr.Code)
	})

	t.Run("Failure - Unknown Product In List", func(t *testing.T) {
		// Arrange
		orderService, _, mockProductRepo := setupOrderServiceTest(t)
		mockProductRepo.On("Resolve", ctx, "no-such-thing").Return(nil, sql.ErrNoRows).Once()

		req := &models.CreateOrderRequest{Items: []models.OrderItemRequest{{Product: "no-such-thing", Quantity: 1}}}

		// Act
		order, err := orderService.CreateOrder(ctx, userID, req)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeProductNotFound, appErr.Code)
	})

	t.Run("Failure - Serialization Conflict Surfaces As 409", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		mockOrderRepo.On("CreateOrderFromCart", ctx, userID).Return(nil, repository.ErrTxConflict).Once()

		// Act
		order, err := orderService.CreateOrder(ctx, userID, &models.CreateOrderRequest{})

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConcurrencyConflict, appErr.Code)
		assert.Equal(t, 409, appErr.StatusCode)
	})
}

func TestGetOrderService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		expected := &models.Order{ID: orderID, UserID: userID}
		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(expected, nil).Once()

		// Act
		order, err := orderService.GetOrder(ctx, userID, orderID)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
	})

	t.Run("Failure - Another User's Order Reads As Absent", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		someoneElses := &models.Order{ID: orderID, UserID: uuid.New()}
		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(someoneElses, nil).Once()

		// Act
		order, err := orderService.GetOrder(ctx, userID, orderID)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeOrderNotFound, appErr.Code)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(nil, sql.ErrNoRows).Once()

		// Act
		order, err := orderService.GetOrder(ctx, userID, orderID)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeOrderNotFound, appErr.Code)
	})
}

func TestListOrdersService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		expected := []models.Order{{ID: uuid.New(), UserID: userID}, {ID: uuid.New(), UserID: userID}}
		mockOrderRepo.On("ListOrdersByUser", ctx, userID).Return(expected, nil).Once()

		// Act
		orders, err := orderService.ListOrders(ctx, userID)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, orders, 2)
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		dbError := errors.New("connection refused")
		mockOrderRepo.On("ListOrdersByUser", ctx, userID).Return(nil, dbError).Once()

		// Act
		orders, err := orderService.ListOrders(ctx, userID)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, orders)
		assert.ErrorIs(t, err, dbError)
	})
}

func TestUpdateOrderStatusService(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		pending := &models.Order{ID: orderID, UserID: userID, Status: models.OrderStatusPending}
		shipped := &models.Order{ID: orderID, UserID: userID, Status: models.OrderStatusShipped}

		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(pending, nil).Once()
		mockOrderRepo.On("UpdateOrderStatus", ctx, orderID, models.OrderStatusShipped).Return(nil).Once()
		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(shipped, nil).Once()

		// Act
		order, err := orderService.UpdateOrderStatus(ctx, userID, orderID, models.OrderStatusShipped)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, order.Status)
	})

	t.Run("Failure - Unknown Status", func(t *testing.T) {
		// Arrange
		orderService, _, _ := setupOrderServiceTest(t)

		// Act
		order, err := orderService.UpdateOrderStatus(ctx, userID, orderID, models.OrderStatus("teleported"))

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
	})

	t.Run("Failure - Another User's Order", func(t *testing.T) {
		// Arrange
		orderService, mockOrderRepo, _ := setupOrderServiceTest(t)
		someoneElses := &models.Order{ID: orderID, UserID: uuid.New()}
		mockOrderRepo.On("GetOrderByID", ctx, orderID).Return(someoneElses, nil).Once()

		// Act
		order, err := orderService.UpdateOrderStatus(ctx, userID, orderID, models.OrderStatusPaid)

		// Assert
		assert.Error(t, err)
		assert.Nil(t, order)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeOrderNotFound, appErr.Code)
	})
}
