package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils/response"
)

type userContextKey string

const UserContextKey = userContextKey("user")

// CartCodeHeader carries the guest session token identifying an
// anonymous cart before login.
const CartCodeHeader = "X-Cart-Code"

type AuthMiddleware struct {
	jwtKey []byte
}

func NewAuthMiddleware(jwtKey []byte) *AuthMiddleware {

	return &AuthMiddleware{jwtKey: jwtKey}

}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, err := m.parseToken(r)
		if err != nil {
			logger.Warn("Authentication failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		requestScopedLogger := logger.With(slog.String("userId", claims.UserID.String()))
		ctx = context.WithValue(ctx, loggerKey, requestScopedLogger)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// MaybeAuthenticate lets a request through with or without a token. Cart
// endpoints use it: an authenticated request acts on the user's cart, an
// anonymous one on the guest cart named by X-Cart-Code.
func (m *AuthMiddleware) MaybeAuthenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		m.Authenticate(next)(w, r)
	}
}

func (m *AuthMiddleware) parseToken(r *http.Request) (*models.Claims, error) {

	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return nil, errors.UnauthorizedError("Authorization header is required")
	}

	// Token is of format : "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")

	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, errors.UnauthorizedError("Invalid authorization format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.BadRequestError("unexpected signing method")
		}
		return m.jwtKey, nil
	})
	if err != nil {
		return nil, errors.UnauthorizedError("Invalid or expired token")
	}

	if !token.Valid {
		return nil, errors.UnauthorizedError("Invalid token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.UnauthorizedError("Token expired")
	}

	return claims, nil
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok
}

// CartOwnerFromRequest derives the cart owner for the request: the
// authenticated user when a token was presented, otherwise the guest
// session named by the X-Cart-Code header.
func CartOwnerFromRequest(r *http.Request) (models.CartOwner, error) {

	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return models.UserOwner(claims.UserID), nil
	}

	if code := r.Header.Get(CartCodeHeader); code != "" {
		return models.SessionOwner(code), nil
	}

	return models.CartOwner{}, errors.UnauthorizedError("Authentication or " + CartCodeHeader + " header is required")
}
