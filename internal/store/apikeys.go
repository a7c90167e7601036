package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// APIKey is one credential row for the admin API.
type APIKey struct {
	ID                 uuid.UUID
	KeyHash            string
	Label              string
	IsAdmin            bool
	RateLimitPerMinute sql.NullInt32
	CreatedAt          time.Time
}

const apiKeyColumns = `id, key_hash, label, is_admin, rate_limit_per_minute, created_at`

// GetAPIKeyByRawKey looks up an API key by its raw value.
func (s *Store) GetAPIKeyByRawKey(ctx context.Context, rawKey string) (APIKey, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hashAPIKey(rawKey))

	var key APIKey
	err := row.Scan(&key.ID, &key.KeyHash, &key.Label, &key.IsAdmin,
		&key.RateLimitPerMinute, &key.CreatedAt)
	return key, err
}

// EnsureAdminAPIKey ensures that there is an admin API key for the given
// raw key and label. If it already exists, it is returned; otherwise, it
// is created.
func (s *Store) EnsureAdminAPIKey(ctx context.Context, rawKey, label string) (APIKey, error) {
	key, err := s.GetAPIKeyByRawKey(ctx, rawKey)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return APIKey{}, err
	}

	key = APIKey{
		ID:        uuid.New(),
		KeyHash:   hashAPIKey(rawKey),
		Label:     label,
		IsAdmin:   true,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, label, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key_hash) DO NOTHING`,
		key.ID, key.KeyHash, key.Label, key.IsAdmin, key.CreatedAt)
	if err != nil {
		return APIKey{}, err
	}
	return s.GetAPIKeyByRawKey(ctx, rawKey)
}

// CreateRandomAPIKey creates a new random API key (with scrapeadmin_
// prefix). It returns the raw key plus the stored record.
func (s *Store) CreateRandomAPIKey(ctx context.Context, label string, isAdmin bool, rateLimitPerMinute *int) (string, APIKey, error) {
	raw := "scrapeadmin_" + uuid.New().String()

	var rl sql.NullInt32
	if rateLimitPerMinute != nil && *rateLimitPerMinute > 0 {
		rl = sql.NullInt32{Int32: int32(*rateLimitPerMinute), Valid: true}
	}

	key := APIKey{
		ID:                 uuid.New(),
		KeyHash:            hashAPIKey(raw),
		Label:              label,
		IsAdmin:            isAdmin,
		RateLimitPerMinute: rl,
		CreatedAt:          time.Now().UTC(),
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, label, is_admin, rate_limit_per_minute, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.KeyHash, key.Label, key.IsAdmin, key.RateLimitPerMinute, key.CreatedAt)
	if err != nil {
		return "", APIKey{}, err
	}
	return raw, key, nil
}
