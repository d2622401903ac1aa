package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/api/handlers"
	"github.com/shopsphere/commerce-core/internal/api/middleware"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCartService struct {
	mock.Mock
}

func (m *mockCartService) GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) AddItem(ctx context.Context, owner models.CartOwner, req *models.AddItemRequest) (*models.Cart, error) {
	args := m.Called(ctx, owner, req)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartService) RemoveItem(ctx context.Context, owner models.CartOwner, productRef string) (*models.Cart, error) {
	args := m.Called(ctx, owner, productRef)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockCartMergeService struct {
	mock.Mock
}

func (m *mockCartMergeService) MergeOnLogin(ctx context.Context, cartCode string, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, cartCode, userID)

	if cart := args.Get(0); cart != nil {
		return cart.(*models.Cart), args.Error(1)
	}

	return nil, args.Error(1)
}

func setupCartHandlerTest() (*mockCartService, *mockCartMergeService, *handlers.CartHandler) {
	mockService := new(mockCartService)
	mockMerge := new(mockCartMergeService)
	cartHandler := handlers.NewCartHandler(mockService, mockMerge)

	return mockService, mockMerge, cartHandler
}

// authenticatedRequest carries verified claims, the way the auth
// middleware leaves them.
func authenticatedRequest(method, url string, body []byte) (*http.Request, *models.Claims) {
	req := httptest.NewRequest(method, url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	claims := &models.Claims{
		UserID: uuid.New(),
		Email:  "test@example.com",
	}

	ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)

	return req.WithContext(ctx), claims
}

func guestRequest(method, url string, body []byte, cartCode string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CartCodeHeader, cartCode)

	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()

	var resp response.APIResponse

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp
}

func TestGetCartHandler(t *testing.T) {
	t.Run("Success - Authenticated User", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		req, claims := authenticatedRequest("GET", "/api/v1/cart", nil)
		rec := httptest.NewRecorder()

		cart := &models.Cart{ID: uuid.New(), UserID: &claims.UserID}
		mockService.On("GetCart", mock.Anything, models.UserOwner(claims.UserID)).Return(cart, nil).Once()

		// Act
		cartHandler.GetCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		assert.True(t, resp.Success)
		mockService.AssertExpectations(t)
	})

	t.Run("Success - Guest Session", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		req := guestRequest("GET", "/api/v1/cart", nil, "guest-abc123")
		rec := httptest.NewRecorder()

		cartCode := "guest-abc123"
		cart := &models.Cart{ID: uuid.New(), CartCode: &cartCode}
		mockService.On("GetCart", mock.Anything, models.SessionOwner(cartCode)).Return(cart, nil).Once()

		// Act
		cartHandler.GetCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - No Identity", func(t *testing.T) {
		// Arrange
		_, _, cartHandler := setupCartHandlerTest()
		req := httptest.NewRequest("GET", "/api/v1/cart", nil)
		rec := httptest.NewRecorder()

		// Act
		cartHandler.GetCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Failure - Cart Not Found", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		req, claims := authenticatedRequest("GET", "/api/v1/cart", nil)
		rec := httptest.NewRecorder()

		mockService.On("GetCart", mock.Anything, models.UserOwner(claims.UserID)).
			Return(nil, appErrors.CartNotFoundError("Cart not found")).Once()

		// Act
		cartHandler.GetCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, appErrors.ErrCodeCartNotFound, resp.Error.Code)
		mockService.AssertExpectations(t)
	})
}

func TestAddItemHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		body := []byte(`{"product": "blue-mug", "quantity": 2}`)
		req, claims := authenticatedRequest("POST", "/api/v1/cart/items", body)
		rec := httptest.NewRecorder()

		cart := &models.Cart{ID: uuid.New(), UserID: &claims.UserID}
		mockService.On("AddItem", mock.Anything, models.UserOwner(claims.UserID),
			&models.AddItemRequest{Product: "blue-mug", Quantity: 2}).Return(cart, nil).Once()

		// Act
		cartHandler.AddItem()(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - Non-Positive Quantity Rejected By Validation", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		body := []byte(`{"product": "blue-mug", "quantity": -1}`)
		req, _ := authenticatedRequest("POST", "/api/v1/cart/items", body)
		rec := httptest.NewRecorder()

		// Act
		cartHandler.AddItem()(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, appErrors.ErrCodeValidation, resp.Error.Code)
		mockService.AssertNotCalled(t, "AddItem")
	})

	t.Run("Failure - Malformed Body", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		req, _ := authenticatedRequest("POST", "/api/v1/cart/items", []byte(`{not json`))
		rec := httptest.NewRecorder()

		// Act
		cartHandler.AddItem()(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "AddItem")
	})
}

func TestRemoveItemHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockService, _, cartHandler := setupCartHandlerTest()
		req, claims := authenticatedRequest("DELETE", "/api/v1/cart/items/blue-mug", nil)
		req.SetPathValue("product", "blue-mug")

		rec := httptest.NewRecorder()

		cart := &models.Cart{ID: uuid.New(), UserID: &claims.UserID}
		mockService.On("RemoveItem", mock.Anything, models.UserOwner(claims.UserID), "blue-mug").
			Return(cart, nil).Once()

		// Act
		cartHandler.RemoveItem()(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - Missing Product Reference", func(t *testing.T) {
		// Arrange
		_, _, cartHandler := setupCartHandlerTest()
		req, _ := authenticatedRequest("DELETE", "/api/v1/cart/items/", nil)
		rec := httptest.NewRecorder()

		// Act
		cartHandler.RemoveItem()(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMergeCartHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		_, mockMerge, cartHandler := setupCartHandlerTest()
		body := []byte(`{"cart_code": "guest-abc123"}`)
		req, claims := authenticatedRequest("POST", "/api/v1/cart/merge", body)
		rec := httptest.NewRecorder()

		cart := &models.Cart{ID: uuid.New(), UserID: &claims.UserID}
		mockMerge.On("MergeOnLogin", mock.Anything, "guest-abc123", claims.UserID).Return(cart, nil).Once()

		// Act
		cartHandler.MergeCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		mockMerge.AssertExpectations(t)
	})

	t.Run("Failure - Unauthenticated", func(t *testing.T) {
		// Arrange
		_, mockMerge, cartHandler := setupCartHandlerTest()
		req := httptest.NewRequest("POST", "/api/v1/cart/merge", bytes.NewBufferString(`{"cart_code": "guest-abc123"}`))
		rec := httptest.NewRecorder()

		// Act
		cartHandler.MergeCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockMerge.AssertNotCalled(t, "MergeOnLogin")
	})

	t.Run("Failure - Missing Cart Code", func(t *testing.T) {
		// Arrange
		_, mockMerge, cartHandler := setupCartHandlerTest()
		req, _ := authenticatedRequest("POST", "/api/v1/cart/merge", []byte(`{}`))
		rec := httptest.NewRecorder()

		// Act
		cartHandler.MergeCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockMerge.AssertNotCalled(t, "MergeOnLogin")
	})

	t.Run("Failure - Merge Conflict Maps To 409", func(t *testing.T) {
		// Arrange
		_, mockMerge, cartHandler := setupCartHandlerTest()
		body := []byte(`{"cart_code": "guest-abc123"}`)
		req, claims := authenticatedRequest("POST", "/api/v1/cart/merge", body)
		rec := httptest.NewRecorder()

		mockMerge.On("MergeOnLogin", mock.Anything, "guest-abc123", claims.UserID).
			Return(nil, appErrors.ConcurrencyConflictError("Cart merge conflicted, please retry")).Once()

		// Act
		cartHandler.MergeCart()(rec, req)

		// Assert
		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, appErrors.ErrCodeConcurrencyConflict, resp.Error.Code)
		mockMerge.AssertExpectations(t)
	})
}
