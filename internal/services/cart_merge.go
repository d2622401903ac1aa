package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/metrics"
	"github.com/shopsphere/commerce-core/internal/models"
	repository "github.com/shopsphere/commerce-core/internal/repositories"
)

// CartMergeService reconciles a guest cart into the authenticated user's
// cart. It runs once per login event.
type CartMergeService struct {
	cartRepo repository.CartRepository
}

func NewCartMergeService(cartRepo repository.CartRepository) *CartMergeService {
	return &CartMergeService{cartRepo: cartRepo}
}

// MergeOnLogin folds the guest cart's items into the user's cart,
// summing quantities for products present in both, and deletes the guest
// cart. No guest cart for the code is a no-op. The whole merge is one
// transaction; it either fully applies or leaves both carts untouched.
func (s *CartMergeService) MergeOnLogin(ctx context.Context, cartCode string, userID uuid.UUID) (*models.Cart, error) {

	merged, err := s.cartRepo.MergeCarts(ctx, cartCode, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTxConflict) {
			metrics.ObserveTxConflict()
			return nil, appErrors.ConcurrencyConflictError("Cart merge conflicted, please retry").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to merge carts").WithError(err)
	}

	if merged {
		slog.Info("Merged guest cart into user cart",
			slog.String("cart_code", cartCode),
			slog.String("user_id", userID.String()),
		)
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, models.UserOwner(userID))
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch merged cart").WithError(err)
	}

	return cart, nil
}
