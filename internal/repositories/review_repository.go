package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils"
)

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, id, userID uuid.UUID, rating int, comment string) (*models.Review, error)
	DeleteReview(ctx context.Context, id, userID uuid.UUID) (uuid.UUID, error)
	GetRating(ctx context.Context, productID uuid.UUID) (*models.ProductRating, error)
}

type reviewRepository struct {
	DB *sql.DB
}

func NewReviewRepo(db *sql.DB) ReviewRepository {
	return &reviewRepository{DB: db}
}

// ErrDuplicateReview: the user already reviewed this product.
var ErrDuplicateReview = errors.New("user already reviewed this product")

// ErrReviewNotFound: no review with that id owned by that user.
var ErrReviewNotFound = errors.New("review not found")

// recomputeRatingQuery is a full re-scan of the product's reviews, not an
// incremental delta. Correct at this scale; revisit if review counts grow.
const recomputeRatingQuery = `
		INSERT INTO product_ratings (product_id, average, total)
		SELECT $1, COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1
		ON CONFLICT (product_id) DO UPDATE
		SET average = EXCLUDED.average, total = EXCLUDED.total
	`

// Every review mutation runs in the same transaction as the aggregate
// recompute, so a reader can never observe one without the other.

func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	return runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

		err := tx.QueryRowContext(dbCtx, query,
			review.ID, review.ProductID, review.UserID, review.Rating, review.Comment).
			Scan(&review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateReview
			}

			return fmt.Errorf("failed to insert review: %w", err)
		}

		return r.recomputeRating(dbCtx, tx, review.ProductID)
	})
}

func (r *reviewRepository) UpdateReview(ctx context.Context, id, userID uuid.UUID, rating int, comment string) (*models.Review, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	review := &models.Review{ID: id, UserID: userID, Rating: rating, Comment: comment}

	err := runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		query := `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
		RETURNING product_id, created_at, updated_at
	`

		err := tx.QueryRowContext(dbCtx, query, rating, comment, id, userID).
			Scan(&review.ProductID, &review.CreatedAt, &review.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}

		return r.recomputeRating(dbCtx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func (r *reviewRepository) DeleteReview(ctx context.Context, id, userID uuid.UUID) (uuid.UUID, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var productID uuid.UUID

	err := runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		query := `
		DELETE FROM reviews
		WHERE id = $1 AND user_id = $2
		RETURNING product_id
	`

		err := tx.QueryRowContext(dbCtx, query, id, userID).Scan(&productID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}

		return r.recomputeRating(dbCtx, tx, productID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return productID, nil
}

// GetRating reads the derived aggregate. A product with no reviews has
// either no row yet or an explicit zero row; both read as {0, 0}.
func (r *reviewRepository) GetRating(ctx context.Context, productID uuid.UUID) (*models.ProductRating, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	rating := &models.ProductRating{ProductID: productID}

	query := `
		SELECT average, total
		FROM product_ratings
		WHERE product_id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, productID).Scan(&rating.Average, &rating.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rating, nil
		}

		return nil, fmt.Errorf("failed to get product rating: %w", err)
	}

	return rating, nil
}

func (r *reviewRepository) recomputeRating(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error {

	if _, err := tx.ExecContext(ctx, recomputeRatingQuery, productID); err != nil {
		return fmt.Errorf("failed to recompute product rating: %w", err)
	}

	return nil
}
