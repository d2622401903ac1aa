package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the read model served by the catalog. Product CRUD lives in a
// separate service; this one only resolves references and reads prices.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
