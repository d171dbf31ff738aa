package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fluxo/internal/shared/auth"
)

type APIKeyRepository struct {
	db *DB
}

func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Ensure the repository satisfies the auth contract
var _ auth.APIKeyRepository = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, user_id, name, secret_hash, last_used_at, revoked_at, created_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, secret_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, key.ID, key.UserID, key.Name, key.SecretHash).Scan(&key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*auth.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	return key, nil
}

func (r *APIKeyRepository) ListByUserID(ctx context.Context, userID string) ([]*auth.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	var keys []*auth.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate API keys: %w", err)
	}
	return keys, nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update API key last use: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return auth.ErrAPIKeyNotFound
	}
	return nil
}

func scanAPIKey(row rowScanner) (*auth.APIKey, error) {
	var key auth.APIKey
	var lastUsedAt, revokedAt sql.NullTime

	err := row.Scan(&key.ID, &key.UserID, &key.Name, &key.SecretHash, &lastUsedAt, &revokedAt, &key.CreatedAt)
	if err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}
	return &key, nil
}
