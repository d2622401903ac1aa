package service

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	repository "github.com/shopsphere/commerce-core/internal/repositories"
)

// CartService owns Cart and CartItem. Other components reach those
// entities only through these calls.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	rateLimiter repository.RateLimitRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, rateLimiter repository.RateLimitRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, rateLimiter: rateLimiter}
}

func (s *CartService) GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.CartNotFoundError("Cart not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	return cart, nil
}

// AddItem resolves the product reference, validates the quantity before
// any mutation, then increments (never replaces) the quantity of the
// owner's cart item. The cart itself is created lazily on first add.
func (s *CartService) AddItem(ctx context.Context, owner models.CartOwner, req *models.AddItemRequest) (*models.Cart, error) {

	if req.Quantity <= 0 {
		return nil, appErrors.InvalidQuantityError("Quantity must be a positive integer")
	}

	if s.rateLimiter != nil {
		allowed, _, err := s.rateLimiter.CheckCartRateLimit(ctx, owner.String())
		if err == nil && !allowed {
			return nil, appErrors.TooManyRequestsError("Too many cart updates, slow down")
		}
	}

	product, err := s.productRepo.Resolve(ctx, req.Product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProductNotFoundError("Product not found: " + req.Product).WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to resolve product").WithError(err)
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, owner)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to get or create cart").WithError(err)
	}

	if err := s.cartRepo.UpsertItem(ctx, cart.ID, product.ID, req.Quantity); err != nil {
		return nil, appErrors.DatabaseError("Failed to add item to cart").WithError(err)
	}

	return s.GetCart(ctx, owner)
}

// RemoveItem deactivates the item. Removing a product that is not in the
// cart is a no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, owner models.CartOwner, productRef string) (*models.Cart, error) {

	product, err := s.productRepo.Resolve(ctx, productRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProductNotFoundError("Product not found: " + productRef).WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to resolve product").WithError(err)
	}

	cart, err := s.cartRepo.GetCartByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.CartNotFoundError("Cart not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	if err := s.cartRepo.DeactivateItem(ctx, cart.ID, product.ID); err != nil {
		return nil, appErrors.DatabaseError("Failed to remove item from cart").WithError(err)
	}

	return s.GetCart(ctx, owner)
}
