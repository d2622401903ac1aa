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

type ReviewService interface {
	CreateReview(ctx context.Context, userID uuid.UUID, productRef string, req *models.CreateReviewRequest) (*models.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, req *models.UpdateReviewRequest) (*models.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error
	GetRating(ctx context.Context, productRef string) (*models.ProductRating, error)
}

type ReviewHandler struct {
	reviewService ReviewService
	validator     *validator.Validate
}

func NewReviewHandler(reviewService ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

func (h *ReviewHandler) CreateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		productRef := r.PathValue("product")
		if productRef == "" {
			response.Error(w, appErrors.BadRequestError("Product reference is required"))
			return
		}

		var req models.CreateReviewRequest
		if !parseAndValidate(w, r, &req, h.validator) {
			return
		}

		review, err := h.reviewService.CreateReview(r.Context(), claims.UserID, productRef, &req)
		if err != nil {
			logger.Warn("Review creation failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusCreated, review)
	}
}

func (h *ReviewHandler) UpdateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			response.Error(w, appErrors.BadRequestError("Invalid review id"))
			return
		}

		var req models.UpdateReviewRequest
		if !parseAndValidate(w, r, &req, h.validator) {
			return
		}

		review, err := h.reviewService.UpdateReview(r.Context(), claims.UserID, id, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, review)
	}
}

func (h *ReviewHandler) DeleteReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			response.Error(w, appErrors.BadRequestError("Invalid review id"))
			return
		}

		if err := h.reviewService.DeleteReview(r.Context(), claims.UserID, id); err != nil {
			response.Error(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *ReviewHandler) GetRating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		productRef := r.PathValue("product")
		if productRef == "" {
			response.Error(w, appErrors.BadRequestError("Product reference is required"))
			return
		}

		rating, err := h.reviewService.GetRating(r.Context(), productRef)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, rating)
	}
}
