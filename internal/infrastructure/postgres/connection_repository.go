package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fluxo/internal/domain/connection"
)

type ConnectionRepository struct {
	db *DB
}

func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Ensure the repository satisfies the domain contract
var _ connection.Repository = (*ConnectionRepository)(nil)

const connectionColumns = `id, user_id, item_id, bank_name, status, last_sync_at, created_at, updated_at`

func (r *ConnectionRepository) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.Connection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO bank_connections (id, user_id, item_id, bank_name, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + connectionColumns

	row := r.db.QueryRowContext(ctx, query, uuid.NewString(), params.UserID, params.ItemID, params.BankName, params.Status)
	conn, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE id = $1`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE item_id = $1`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection by item: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) ListByUserID(ctx context.Context, userID string) ([]*connection.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM bank_connections
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	return collectConnections(rows)
}

func (r *ConnectionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*connection.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM bank_connections
		WHERE user_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, connection.StatusDisconnected, connection.StatusLoginError)
	if err != nil {
		return nil, fmt.Errorf("failed to list active connections: %w", err)
	}
	defer rows.Close()

	return collectConnections(rows)
}

func (r *ConnectionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM bank_connections
		WHERE status NOT IN ($1, $2)
	`

	rows, err := r.db.QueryContext(ctx, query, connection.StatusDisconnected, connection.StatusLoginError)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user IDs: %w", err)
	}
	return userIDs, nil
}

func (r *ConnectionRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	if !connection.IsValidStatus(status) {
		return connection.ErrInvalidStatus
	}

	result, err := r.db.ExecContext(ctx, `UPDATE bank_connections SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return connection.ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) TouchLastSync(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bank_connections SET last_sync_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	return nil
}

// Delete removes a connection. Transactions, card accounts and bills cascade
// via foreign keys.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bank_connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return connection.ErrNotFound
	}
	return nil
}

func scanConnection(row rowScanner) (*connection.Connection, error) {
	var conn connection.Connection
	var lastSyncAt sql.NullTime

	err := row.Scan(
		&conn.ID, &conn.UserID, &conn.ItemID, &conn.BankName,
		&conn.Status, &lastSyncAt, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSyncAt.Valid {
		conn.LastSyncAt = &lastSyncAt.Time
	}
	return &conn, nil
}

func collectConnections(rows *sql.Rows) ([]*connection.Connection, error) {
	var connections []*connection.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return connections, nil
}
