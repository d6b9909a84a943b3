package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrStockNegative = errors.New("stock adjustment would go negative")
)

// Store is the data access abstraction for the products domain.
type Store interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*Product, error)
	Delete(ctx context.Context, id int64) error
	SetThumbnail(ctx context.Context, id int64, url string) error

	// AdjustStock applies a relative delta as a single atomic counter
	// update; it never lets stock go below zero.
	AdjustStock(ctx context.Context, id int64, delta int) (*Product, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const productColumns = `id, title, description, price, stock, thumbnail, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Thumbnail,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *Product) error {
	err := r.db.QueryRow(ctx, `
INSERT INTO products (title, description, price, stock, thumbnail, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at
`, p.Title, p.Description, p.Price, p.Stock, p.Thumbnail, p.IsActive).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products
WHERE id = $1
`, id)
	return scanProduct(row)
}

func (r *Repository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	if activeOnly {
		where = "is_active = true"
	}

	q := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total
FROM products
WHERE %s
ORDER BY id DESC
LIMIT $1 OFFSET $2
`, productColumns, where)

	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*Product
	total := 0
	for rows.Next() {
		var p Product
		var t int
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock,
			&p.Thumbnail, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products rows: %w", err)
	}

	return out, total, nil
}

// Update applies a partial update. Only whitelisted columns are accepted;
// the handler builds the map from validated payload fields.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) (*Product, error) {
	allowed := map[string]bool{
		"title":       true,
		"description": true,
		"price":       true,
		"stock":       true,
		"is_active":   true,
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	arg := 1

	for col, val := range fields {
		if !allowed[col] {
			return nil, fmt.Errorf("column %q is not updatable", col)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, arg))
		args = append(args, val)
		arg++
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	q := fmt.Sprintf(`
UPDATE products
SET %s
WHERE id = $%d
RETURNING %s
`, strings.Join(sets, ", "), arg, productColumns)
	args = append(args, id)

	return scanProduct(r.db.QueryRow(ctx, q, args...))
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetThumbnail(ctx context.Context, id int64, url string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE products
SET thumbnail = $2, updated_at = now()
WHERE id = $1
`, id, url)
	if err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int) (*Product, error) {
	row := r.db.QueryRow(ctx, `
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1
  AND stock + $2 >= 0
RETURNING `+productColumns+`
`, id, delta)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Distinguish a missing product from a refused adjustment.
			if _, gerr := r.GetByID(ctx, id); gerr == nil {
				return nil, ErrStockNegative
			}
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}
