package reviews

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("review not found")
	ErrDuplicate = errors.New("you have already reviewed this product")
)

type Store interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]Review, error)
	Delete(ctx context.Context, reviewID, productID int64) error
	GetByID(ctx context.Context, reviewID int64) (*Review, error)
	Stats(ctx context.Context, productID int64) (*Stats, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) Create(ctx context.Context, rev *Review) error {
	err := r.db.QueryRow(ctx, `
INSERT INTO product_reviews (product_id, user_id, rating, comment)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at
`, rev.ProductID, rev.UserID, rev.Rating, rev.Comment).
		Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicate
			case "23503":
				return fmt.Errorf("product does not exist: %w", err)
			}
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	var rev Review
	err := r.db.QueryRow(ctx, `
SELECT id, product_id, user_id, rating, comment, created_at, updated_at
FROM product_reviews
WHERE id = $1
`, reviewID).Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &rev, nil
}

func (r *Repository) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT id, product_id, user_id, rating, comment, created_at, updated_at
FROM product_reviews
WHERE product_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, reviewID, productID int64) error {
	tag, err := r.db.Exec(ctx, `
DELETE FROM product_reviews
WHERE id = $1 AND product_id = $2
`, reviewID, productID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Stats(ctx context.Context, productID int64) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(AVG(rating), 0)
FROM product_reviews
WHERE product_id = $1
`, productID).Scan(&s.Count, &s.Average)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	return &s, nil
}
