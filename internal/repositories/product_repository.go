package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils"
)

// ProductRepository is the read side of the catalog. Product writes belong
// to the catalog service, not this one.
type ProductRepository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	Resolve(ctx context.Context, ref string) (*models.Product, error)
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, slug, price, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	return r.scanProduct(r.DB.QueryRowContext(dbCtx, query, id))
}

func (r *productRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, slug, price, created_at, updated_at
		FROM products
		WHERE slug = $1
	`

	return r.scanProduct(r.DB.QueryRowContext(dbCtx, query, slug))
}

// Resolve accepts either a product id or a slug, the two reference forms
// the exposed contracts allow.
func (r *productRepository) Resolve(ctx context.Context, ref string) (*models.Product, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return r.GetProductByID(ctx, id)
	}

	return r.GetProductBySlug(ctx, ref)
}

func (r *productRepository) scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}

	err := row.Scan(&product.ID, &product.Name, &product.Slug, &product.Price, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return product, nil
}
