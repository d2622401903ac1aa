package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopsphere/commerce-core/internal/cache"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/metrics"
	"github.com/shopsphere/commerce-core/internal/models"
	repository "github.com/shopsphere/commerce-core/internal/repositories"
)

// ReviewService owns Review and the derived ProductRating. Every review
// mutation recomputes the aggregate in the same transaction, so the two
// can never diverge for a reader.
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	cache       cache.Cache
	ratingTTL   time.Duration
	sanitizer   *bluemonday.Policy
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, ratingCache cache.Cache, ratingTTL time.Duration) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		cache:       ratingCache,
		ratingTTL:   ratingTTL,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *ReviewService) CreateReview(ctx context.Context, userID uuid.UUID, productRef string, req *models.CreateReviewRequest) (*models.Review, error) {

	if req.Rating < 1 || req.Rating > 5 {
		return nil, appErrors.ValidationError("Rating must be between 1 and 5")
	}

	product, err := s.productRepo.Resolve(ctx, productRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProductNotFoundError("Product not found: " + productRef).WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to resolve product").WithError(err)
	}

	review := &models.Review{
		ID:        uuid.New(),
		ProductID: product.ID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   s.sanitizeComment(req.Comment),
	}

	if err := s.reviewRepo.CreateReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			return nil, appErrors.BadRequestError("You have already reviewed this product").WithError(err)
		case errors.Is(err, repository.ErrTxConflict):
			metrics.ObserveTxConflict()
			return nil, appErrors.ConcurrencyConflictError("Review write conflicted, please retry").WithError(err)
		default:
			return nil, appErrors.DatabaseError("Failed to create review").WithError(err)
		}
	}

	s.invalidateRating(ctx, product.ID)

	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, req *models.UpdateReviewRequest) (*models.Review, error) {

	if req.Rating < 1 || req.Rating > 5 {
		return nil, appErrors.ValidationError("Rating must be between 1 and 5")
	}

	review, err := s.reviewRepo.UpdateReview(ctx, reviewID, userID, req.Rating, s.sanitizeComment(req.Comment))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			return nil, appErrors.NotFoundError("Review not found").WithError(err)
		case errors.Is(err, repository.ErrTxConflict):
			metrics.ObserveTxConflict()
			return nil, appErrors.ConcurrencyConflictError("Review write conflicted, please retry").WithError(err)
		default:
			return nil, appErrors.DatabaseError("Failed to update review").WithError(err)
		}
	}

	s.invalidateRating(ctx, review.ProductID)

	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error {

	productID, err := s.reviewRepo.DeleteReview(ctx, reviewID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			return appErrors.NotFoundError("Review not found").WithError(err)
		case errors.Is(err, repository.ErrTxConflict):
			metrics.ObserveTxConflict()
			return appErrors.ConcurrencyConflictError("Review write conflicted, please retry").WithError(err)
		default:
			return appErrors.DatabaseError("Failed to delete review").WithError(err)
		}
	}

	s.invalidateRating(ctx, productID)

	return nil
}

// GetRating serves the derived {average, total} aggregate, cached with
// write-through invalidation on every review mutation.
func (s *ReviewService) GetRating(ctx context.Context, productRef string) (*models.ProductRating, error) {

	product, err := s.productRepo.Resolve(ctx, productRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProductNotFoundError("Product not found: " + productRef).WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to resolve product").WithError(err)
	}

	key := cache.Key(cache.RatingKeyPrefix, product.ID.String())

	if s.cache != nil {
		rating := &models.ProductRating{}

		found, err := s.cache.Get(ctx, key, rating)
		if err == nil && found {
			return rating, nil
		}
	}

	rating, err := s.reviewRepo.GetRating(ctx, product.ID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch product rating").WithError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rating, s.ratingTTL); err != nil {
			slog.Warn("Failed to cache product rating", slog.String("error", err.Error()))
		}
	}

	return rating, nil
}

func (s *ReviewService) sanitizeComment(comment string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(comment))
}

func (s *ReviewService) invalidateRating(ctx context.Context, productID uuid.UUID) {
	if s.cache == nil {
		return
	}

	key := cache.Key(cache.RatingKeyPrefix, productID.String())

	if err := s.cache.Delete(ctx, key); err != nil {
		slog.Warn("Failed to invalidate rating cache", slog.String("error", err.Error()))
	}
}
