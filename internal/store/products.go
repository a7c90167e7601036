package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// ErrDuplicateProduct is returned when importing a candidate whose source
// URL already exists in the catalog and override_existing is off.
var ErrDuplicateProduct = errors.New("a catalog product with this source url already exists")

const candidateColumns = `id, job_id, title, description, price, original_price, currency,
	images, rating, review_count, brand, availability, source_platform, source_url,
	provider, scraped_at, imported_at`

// CreateScrapedProduct stages a candidate produced by the extraction pipeline.
func (s *Store) CreateScrapedProduct(ctx context.Context, p *model.ScrapedProduct) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO scraped_products (id, job_id, title, description, price, original_price,
			currency, images, rating, review_count, brand, availability, source_platform,
			source_url, provider, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.JobID, p.Title, p.Description, p.Price, p.OriginalPrice, p.Currency,
		images, p.Rating, p.ReviewCount, p.Brand, p.Availability, p.SourcePlatform,
		p.SourceURL, p.Provider, p.ScrapedAt)
	return err
}

// GetScrapedProductByID fetches one staged candidate. Returns sql.ErrNoRows
// for unknown ids.
func (s *Store) GetScrapedProductByID(ctx context.Context, id uuid.UUID) (model.ScrapedProduct, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM scraped_products WHERE id = $1`, id)
	return scanScrapedProduct(row)
}

// ListScrapedProducts returns staged candidates, optionally scoped to one
// job, newest first.
func (s *Store) ListScrapedProducts(ctx context.Context, jobID *uuid.UUID, limit, offset int) ([]model.ScrapedProduct, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + candidateColumns + ` FROM scraped_products`
	args := []any{}
	if jobID != nil {
		query += ` WHERE job_id = $1 ORDER BY scraped_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *jobID, limit, offset)
	} else {
		query += ` ORDER BY scraped_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.ScrapedProduct
	for rows.Next() {
		p, err := scanScrapedProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteScrapedProductByID removes one staged candidate.
func (s *Store) DeleteScrapedProductByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM scraped_products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkScrapedProductImported stamps the candidate without otherwise
// mutating it; importing copies, it does not move.
func (s *Store) MarkScrapedProductImported(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE scraped_products SET imported_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeleteExpiredScrapedProducts removes never-imported candidates scraped
// before the cutoff.
func (s *Store) DeleteExpiredScrapedProducts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM scraped_products
		WHERE imported_at IS NULL AND scraped_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertProduct commits a catalog product. With override false an existing
// product for the same source URL yields ErrDuplicateProduct; with
// override true it is replaced in place.
func (s *Store) InsertProduct(ctx context.Context, p *model.Product, override bool) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, title, description, price, images, brand, category,
			status, source_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_url) WHERE source_url IS NOT NULL DO NOTHING`
	if override {
		query = `
		INSERT INTO products (id, title, description, price, images, brand, category,
			status, source_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_url) WHERE source_url IS NOT NULL DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description,
		    price = EXCLUDED.price, images = EXCLUDED.images, brand = EXCLUDED.brand,
		    category = EXCLUDED.category, status = EXCLUDED.status`
	}

	res, err := s.DB.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, images, p.Brand, p.Category,
		p.Status, p.SourceURL, p.CreatedAt)
	if err != nil {
		return err
	}

	if !override {
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrDuplicateProduct
		}
	}
	return nil
}

func scanScrapedProduct(row rowScanner) (model.ScrapedProduct, error) {
	var (
		p        model.ScrapedProduct
		images   pqtype.NullRawMessage
		imported sql.NullTime
	)

	err := row.Scan(&p.ID, &p.JobID, &p.Title, &p.Description, &p.Price, &p.OriginalPrice,
		&p.Currency, &images, &p.Rating, &p.ReviewCount, &p.Brand, &p.Availability,
		&p.SourcePlatform, &p.SourceURL, &p.Provider, &p.ScrapedAt, &imported)
	if err != nil {
		return model.ScrapedProduct{}, err
	}

	if images.Valid && len(images.RawMessage) > 0 {
		if err := json.Unmarshal(images.RawMessage, &p.Images); err != nil {
			return model.ScrapedProduct{}, err
		}
	}
	if imported.Valid {
		t := imported.Time
		p.ImportedAt = &t
	}
	return p, nil
}
