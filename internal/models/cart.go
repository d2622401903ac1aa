package models

import (
	"time"

	"github.com/google/uuid"
)

type OwnerKind int

const (
	OwnerKindUser OwnerKind = iota + 1
	OwnerKindSession
)

// CartOwner identifies who a cart belongs to: an authenticated user or a
// guest session (cart_code). Exactly one of the two, never both. The
// two-nullable-columns encoding exists only inside the repository layer.
type CartOwner struct {
	kind     OwnerKind
	userID   uuid.UUID
	cartCode string
}

func UserOwner(userID uuid.UUID) CartOwner {
	return CartOwner{kind: OwnerKindUser, userID: userID}
}

func SessionOwner(cartCode string) CartOwner {
	return CartOwner{kind: OwnerKindSession, cartCode: cartCode}
}

func (o CartOwner) Kind() OwnerKind {
	return o.kind
}

func (o CartOwner) UserID() (uuid.UUID, bool) {
	return o.userID, o.kind == OwnerKindUser
}

func (o CartOwner) CartCode() (string, bool) {
	return o.cartCode, o.kind == OwnerKindSession
}

func (o CartOwner) String() string {
	if o.kind == OwnerKindUser {
		return "user:" + o.userID.String()
	}

	return "session:" + o.cartCode
}

type CartItem struct {
	ID          uuid.UUID `json:"id"`
	CartID      uuid.UUID `json:"cart_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductSlug string    `json:"product_slug"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Subtotal    float64   `json:"subtotal"`
}

// Cart.Total is a read-time projection over the active items at current
// product prices. It is never stored; contrast Order.TotalAmount.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CartCode  *string    `json:"cart_code,omitempty"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) ComputeTotal() float64 {
	var total float64

	for _, item := range c.Items {
		total += item.Subtotal
	}

	c.Total = total

	return total
}

type AddItemRequest struct {
	Product  string `json:"product"  validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type MergeCartRequest struct {
	CartCode string `json:"cart_code" validate:"required"`
}
