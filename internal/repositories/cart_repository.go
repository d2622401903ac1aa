package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopsphere/commerce-core/internal/models"
	"github.com/shopsphere/commerce-core/internal/utils"
)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	GetCartByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	DeactivateItem(ctx context.Context, cartID, productID uuid.UUID) error
	MergeCarts(ctx context.Context, cartCode string, userID uuid.UUID) (bool, error)
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

const selectCartByUser = `
		SELECT id, user_id, cart_code, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

const selectCartByCode = `
		SELECT id, user_id, cart_code, created_at, updated_at
		FROM carts
		WHERE cart_code = $1
	`

// upsertItemQuery realizes "same product added twice -> one row, summed
// quantity". A previously removed (inactive) row is revived with the new
// quantity instead of summing into its stale value. The conflict target
// is the UNIQUE (cart_id, product_id) constraint, so two concurrent adds
// serialize on the row and neither increment is lost.
const upsertItemQuery = `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = CASE WHEN cart_items.is_active
				THEN cart_items.quantity + EXCLUDED.quantity
				ELSE EXCLUDED.quantity END,
			is_active = TRUE,
			updated_at = NOW()
	`

func (r *cartRepository) GetCartByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	cart, err := r.getCart(dbCtx, owner)
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(dbCtx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *cartRepository) GetOrCreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	cart, err := r.getCart(dbCtx, owner)
	if err == nil {
		if err := r.loadItems(dbCtx, cart); err != nil {
			return nil, err
		}

		return cart, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var userID sql.Null[uuid.UUID]

	var cartCode sql.NullString

	if id, ok := owner.UserID(); ok {
		userID = sql.Null[uuid.UUID]{V: id, Valid: true}
	}

	if code, ok := owner.CartCode(); ok {
		cartCode = sql.NullString{String: code, Valid: true}
	}

	query := `
		INSERT INTO carts (id, user_id, cart_code, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	_, err = r.DB.ExecContext(dbCtx, query, uuid.New(), userID, cartCode)
	if err != nil {
		// lost the race: another request created the owner's cart first
		if isUniqueViolation(err) {
			return r.GetCartByOwner(ctx, owner)
		}

		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.GetCartByOwner(ctx, owner)
}

func (r *cartRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	_, err := r.DB.ExecContext(dbCtx, upsertItemQuery, uuid.New(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) DeactivateItem(ctx context.Context, cartID, productID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE cart_items
		SET is_active = FALSE, updated_at = NOW()
		WHERE cart_id = $1 AND product_id = $2 AND is_active
	`

	// removing an absent item is a no-op, not an error
	_, err := r.DB.ExecContext(dbCtx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to deactivate cart item: %w", err)
	}

	return nil
}

// MergeCarts folds the guest cart identified by cartCode into the user's
// cart inside one transaction: lock guest cart, get-or-create user cart,
// sum quantities for shared products, delete the guest cart. Returns
// false when no guest cart exists. A crash mid-merge rolls back fully,
// leaving the guest cart intact.
func (r *cartRepository) MergeCarts(ctx context.Context, cartCode string, userID uuid.UUID) (bool, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	merged := false

	err := runInTx(dbCtx, r.DB, func(tx *sql.Tx) error {

		var guestCartID uuid.UUID

		// FOR UPDATE blocks concurrent adds to the guest cart for the
		// duration of the merge.
		err := tx.QueryRowContext(dbCtx,
			`SELECT id FROM carts WHERE cart_code = $1 FOR UPDATE`, cartCode).Scan(&guestCartID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to lock guest cart: %w", err)
		}

		if _, err := tx.ExecContext(dbCtx, `
		INSERT INTO carts (id, user_id, cart_code, created_at, updated_at)
		VALUES ($1, $2, NULL, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID); err != nil {
			return fmt.Errorf("failed to ensure user cart: %w", err)
		}

		var userCartID uuid.UUID

		if err := tx.QueryRowContext(dbCtx,
			`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&userCartID); err != nil {
			return fmt.Errorf("failed to lock user cart: %w", err)
		}

		if _, err := tx.ExecContext(dbCtx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, is_active, created_at, updated_at)
		SELECT gen_random_uuid(), $1, gi.product_id, gi.quantity, TRUE, NOW(), NOW()
		FROM cart_items gi
		WHERE gi.cart_id = $2 AND gi.is_active
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = CASE WHEN cart_items.is_active
				THEN cart_items.quantity + EXCLUDED.quantity
				ELSE EXCLUDED.quantity END,
			is_active = TRUE,
			updated_at = NOW()
	`, userCartID, guestCartID); err != nil {
			return fmt.Errorf("failed to merge cart items: %w", err)
		}

		// cart_items rows go with the cart (ON DELETE CASCADE)
		if _, err := tx.ExecContext(dbCtx,
			`DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
			return fmt.Errorf("failed to delete guest cart: %w", err)
		}

		merged = true

		return nil
	})
	if err != nil {
		return false, err
	}

	return merged, nil
}

func (r *cartRepository) getCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {

	var row *sql.Row

	if id, ok := owner.UserID(); ok {
		row = r.DB.QueryRowContext(ctx, selectCartByUser, id)
	} else {
		code, _ := owner.CartCode()
		row = r.DB.QueryRowContext(ctx, selectCartByCode, code)
	}

	cart := &models.Cart{}

	var userID sql.Null[uuid.UUID]

	var cartCode sql.NullString

	var createdAt, updatedAt time.Time

	err := row.Scan(&cart.ID, &userID, &cartCode, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	if userID.Valid {
		cart.UserID = &userID.V
	}

	if cartCode.Valid {
		cart.CartCode = &cartCode.String
	}

	cart.CreatedAt = createdAt
	cart.UpdatedAt = updatedAt

	return cart, nil
}

// loadItems fills the active items, each priced at the product's current
// price. The total is a projection, not stored state.
func (r *cartRepository) loadItems(ctx context.Context, cart *models.Cart) error {

	query := `
		SELECT ci.id, ci.product_id, p.slug, ci.quantity, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.is_active
	`

	rows, err := r.DB.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}

	defer rows.Close()

	items := []models.CartItem{}

	for rows.Next() {

		var item models.CartItem

		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductSlug, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan cart item: %w", err)
		}

		item.CartID = cart.ID
		item.Subtotal = float64(item.Quantity) * item.UnitPrice

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	cart.Items = items
	cart.ComputeTotal()

	return nil
}
