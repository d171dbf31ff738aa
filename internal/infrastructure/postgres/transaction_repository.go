package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fluxo/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Ensure the repository satisfies the domain contract
var _ transaction.Repository = (*TransactionRepository)(nil)

const transactionColumns = `id, user_id, bank_connection_id, description, amount, transaction_date, type, category, balance, created_at, updated_at`

func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (id, user_id, bank_connection_id, description, amount, transaction_date, type, category, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			amount = EXCLUDED.amount,
			transaction_date = EXCLUDED.transaction_date,
			type = EXCLUDED.type,
			category = EXCLUDED.category,
			balance = EXCLUDED.balance,
			updated_at = NOW()
		RETURNING ` + transactionColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.ConnectionID, params.Description,
		params.Amount, params.Date, params.Type, params.Category, params.Balance,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) ListByUserIDInRange(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in range: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var category sql.NullString
	var balance sql.NullFloat64

	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.ConnectionID, &tx.Description,
		&tx.Amount, &tx.Date, &tx.Type, &category, &balance,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		tx.Category = &category.String
	}
	if balance.Valid {
		tx.Balance = &balance.Float64
	}
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
