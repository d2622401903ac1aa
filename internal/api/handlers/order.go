package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/api/middleware"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils"
	"github.com/shopsphere/commerce-core/internal/utils/response"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, userID, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type OrderHandler struct {
	orderService OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		validator:    validator.New(),
	}
}

// CreateOrder accepts an empty body (order from the caller's cart) or an
// explicit item list. The owner is always the authenticated caller, never
// part of the payload.
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		req := models.CreateOrderRequest{}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			response.Error(w, appErrors.BadRequestError("Invalid request body").WithError(err))
			return
		}

		r.Body.Close()

		if len(body) > 0 {
			if err := utils.DecodeJSONRaw(body, &req); err != nil {
				response.Error(w, appErrors.BadRequestError("Invalid request body").WithError(err))
				return
			}

			if err := utils.ValidateStruct(h.validator, req); err != nil {
				response.Error(w, appErrors.ValidationError("Invalid input data").WithError(err))
				return
			}
		}

		order, err := h.orderService.CreateOrder(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Warn("Order creation failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Order created",
			slog.String("orderId", order.ID.String()),
			slog.Float64("total", order.TotalAmount),
		)
		response.Success(w, http.StatusCreated, order)
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			response.Error(w, appErrors.BadRequestError("Invalid order id"))
			return
		}

		order, err := h.orderService.GetOrder(r.Context(), claims.UserID, id)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		orders, err := h.orderService.ListOrders(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, orders)
	}
}

func (h *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			response.Error(w, appErrors.BadRequestError("Invalid order id"))
			return
		}

		var req models.UpdateOrderStatusRequest
		if !parseAndValidate(w, r, &req, h.validator) {
			return
		}

		order, err := h.orderService.UpdateOrderStatus(r.Context(), claims.UserID, id, req.Status)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}
