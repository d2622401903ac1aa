package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/api/middleware"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils/response"
)

// CartService is the slice of the cart service this handler consumes.
type CartService interface {
	GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	AddItem(ctx context.Context, owner models.CartOwner, req *models.AddItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner models.CartOwner, productRef string) (*models.Cart, error)
}

type CartMergeService interface {
	MergeOnLogin(ctx context.Context, cartCode string, userID uuid.UUID) (*models.Cart, error)
}

type CartHandler struct {
	cartService  CartService
	mergeService CartMergeService
	validator    *validator.Validate
}

func NewCartHandler(cartService CartService, mergeService CartMergeService) *CartHandler {
	return &CartHandler{
		cartService:  cartService,
		mergeService: mergeService,
		validator:    validator.New(),
	}
}

func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		owner, err := middleware.CartOwnerFromRequest(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		cart, err := h.cartService.GetCart(r.Context(), owner)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		owner, err := middleware.CartOwnerFromRequest(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.AddItemRequest
		if !parseAndValidate(w, r, &req, h.validator) {
			return
		}

		cart, err := h.cartService.AddItem(r.Context(), owner, &req)
		if err != nil {
			logger.Warn("Failed to add item to cart", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Item added to cart",
			slog.String("cartId", cart.ID.String()),
			slog.String("product", req.Product),
			slog.Int("quantity", req.Quantity),
		)
		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		owner, err := middleware.CartOwnerFromRequest(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		productRef := r.PathValue("product")
		if productRef == "" {
			response.Error(w, appErrors.BadRequestError("Product reference is required"))
			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), owner, productRef)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// MergeCart is the login-event entry point: the freshly authenticated
// user presents the guest cart_code and both carts become one.
func (h *CartHandler) MergeCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		var req models.MergeCartRequest
		if !parseAndValidate(w, r, &req, h.validator) {
			return
		}

		cart, err := h.mergeService.MergeOnLogin(r.Context(), req.CartCode, claims.UserID)
		if err != nil {
			logger.Warn("Cart merge failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}
