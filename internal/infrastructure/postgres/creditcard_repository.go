package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"fluxo/internal/domain/creditcard"
)

type CreditCardAccountRepository struct {
	db *DB
}

func NewCreditCardAccountRepository(db *DB) *CreditCardAccountRepository {
	return &CreditCardAccountRepository{db: db}
}

// Ensure the repositories satisfy the domain contracts
var (
	_ creditcard.AccountRepository = (*CreditCardAccountRepository)(nil)
	_ creditcard.BillRepository    = (*CreditCardBillRepository)(nil)
)

const cardAccountColumns = `id, user_id, bank_connection_id, pluggy_account_id, name, credit_limit, available_credit_limit, close_day, due_day, brand, created_at, updated_at`

func (r *CreditCardAccountRepository) Upsert(ctx context.Context, params creditcard.UpsertAccountParams) (*creditcard.Account, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO credit_card_accounts (id, user_id, bank_connection_id, pluggy_account_id, name, credit_limit, available_credit_limit, close_day, due_day, brand)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pluggy_account_id) DO UPDATE SET
			name = EXCLUDED.name,
			credit_limit = EXCLUDED.credit_limit,
			available_credit_limit = EXCLUDED.available_credit_limit,
			close_day = EXCLUDED.close_day,
			due_day = EXCLUDED.due_day,
			brand = EXCLUDED.brand,
			updated_at = NOW()
		RETURNING ` + cardAccountColumns

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.UserID, params.ConnectionID, params.ProviderAccountID,
		params.Name, params.CreditLimit, params.AvailableCreditLimit,
		params.CloseDay, params.DueDay, params.Brand,
	)
	account, err := scanCardAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert card account: %w", err)
	}
	return account, nil
}

func (r *CreditCardAccountRepository) GetByProviderAccountID(ctx context.Context, providerAccountID string) (*creditcard.Account, error) {
	query := `SELECT ` + cardAccountColumns + ` FROM credit_card_accounts WHERE pluggy_account_id = $1`

	account, err := scanCardAccount(r.db.QueryRowContext(ctx, query, providerAccountID))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card account: %w", err)
	}
	return account, nil
}

func (r *CreditCardAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*creditcard.Account, error) {
	query := `
		SELECT ` + cardAccountColumns + `
		FROM credit_card_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list card accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*creditcard.Account
	for rows.Next() {
		account, err := scanCardAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card accounts: %w", err)
	}
	return accounts, nil
}

func scanCardAccount(row rowScanner) (*creditcard.Account, error) {
	var account creditcard.Account
	var name, brand sql.NullString
	var creditLimit, availableLimit sql.NullFloat64
	var closeDay, dueDay sql.NullInt64

	err := row.Scan(
		&account.ID, &account.UserID, &account.ConnectionID, &account.ProviderAccountID,
		&name, &creditLimit, &availableLimit, &closeDay, &dueDay, &brand,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		account.Name = &name.String
	}
	if brand.Valid {
		account.Brand = &brand.String
	}
	if creditLimit.Valid {
		account.CreditLimit = &creditLimit.Float64
	}
	if availableLimit.Valid {
		account.AvailableCreditLimit = &availableLimit.Float64
	}
	if closeDay.Valid {
		v := int(closeDay.Int64)
		account.CloseDay = &v
	}
	if dueDay.Valid {
		v := int(dueDay.Int64)
		account.DueDay = &v
	}
	return &account, nil
}

type CreditCardBillRepository struct {
	db *DB
}

func NewCreditCardBillRepository(db *DB) *CreditCardBillRepository {
	return &CreditCardBillRepository{db: db}
}

const billColumns = `id, credit_card_account_id, pluggy_bill_id, due_date, close_date, amount, open_amount, paid_amount, minimum_payment, status, created_at, updated_at`

func (r *CreditCardBillRepository) Upsert(ctx context.Context, params creditcard.UpsertBillParams) (*creditcard.Bill, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO credit_card_bills (id, credit_card_account_id, pluggy_bill_id, due_date, close_date, amount, open_amount, paid_amount, minimum_payment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pluggy_bill_id) DO UPDATE SET
			due_date = EXCLUDED.due_date,
			close_date = EXCLUDED.close_date,
			amount = EXCLUDED.amount,
			open_amount = EXCLUDED.open_amount,
			paid_amount = EXCLUDED.paid_amount,
			minimum_payment = EXCLUDED.minimum_payment,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + billColumns

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.AccountID, params.ProviderBillID,
		params.DueDate, params.CloseDate, params.Amount,
		params.OpenAmount, params.PaidAmount, params.MinimumPayment, params.Status,
	)
	bill, err := scanBill(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bill: %w", err)
	}
	return bill, nil
}

// ListByUserID joins through card accounts so the snapshot side can fetch a
// user's bills in one call.
func (r *CreditCardBillRepository) ListByUserID(ctx context.Context, userID string) ([]*creditcard.Bill, error) {
	query := `
		SELECT b.id, b.credit_card_account_id, b.pluggy_bill_id, b.due_date, b.close_date,
		       b.amount, b.open_amount, b.paid_amount, b.minimum_payment, b.status,
		       b.created_at, b.updated_at
		FROM credit_card_bills b
		JOIN credit_card_accounts a ON a.id = b.credit_card_account_id
		WHERE a.user_id = $1
		ORDER BY b.due_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*creditcard.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

func scanBill(row rowScanner) (*creditcard.Bill, error) {
	var bill creditcard.Bill
	var closeDate sql.NullTime
	var openAmount, paidAmount, minimumPayment sql.NullFloat64

	err := row.Scan(
		&bill.ID, &bill.AccountID, &bill.ProviderBillID, &bill.DueDate, &closeDate,
		&bill.Amount, &openAmount, &paidAmount, &minimumPayment, &bill.Status,
		&bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if closeDate.Valid {
		bill.CloseDate = &closeDate.Time
	}
	if openAmount.Valid {
		bill.OpenAmount = &openAmount.Float64
	}
	if paidAmount.Valid {
		bill.PaidAmount = &paidAmount.Float64
	}
	if minimumPayment.Valid {
		bill.MinimumPayment = &minimumPayment.Float64
	}
	return &bill, nil
}
