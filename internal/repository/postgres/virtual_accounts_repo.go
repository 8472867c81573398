package postgres

import (
	"context"

	"github.com/planmoni/planmoni-backend/internal/models"
)

type virtualAccountsRepo struct{ db dbtx }

const accountCols = `user_id, customer_code, COALESCE(account_number, ''), account_name, bank_name, status, updated_at`

func (r *virtualAccountsRepo) Upsert(ctx context.Context, a models.VirtualAccount) (models.VirtualAccount, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO virtual_accounts(user_id, customer_code, account_number, account_name, bank_name, status)
		 VALUES($1,$2,NULLIF($3,''),$4,$5,$6)
		 ON CONFLICT (user_id) DO UPDATE
		 SET customer_code = EXCLUDED.customer_code,
		     account_number = COALESCE(EXCLUDED.account_number, virtual_accounts.account_number),
		     account_name = EXCLUDED.account_name,
		     bank_name = EXCLUDED.bank_name,
		     status = EXCLUDED.status,
		     updated_at = now()
		 RETURNING `+accountCols,
		a.UserID, a.CustomerCode, a.AccountNumber, a.AccountName, a.BankName, a.Status,
	))
}

func (r *virtualAccountsRepo) GetByUser(ctx context.Context, userID string) (models.VirtualAccount, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountCols+` FROM virtual_accounts WHERE user_id=$1`, userID))
}

func (r *virtualAccountsRepo) GetByAccountNumber(ctx context.Context, accountNumber string) (models.VirtualAccount, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountCols+` FROM virtual_accounts WHERE account_number=$1`, accountNumber))
}

func (r *virtualAccountsRepo) GetByCustomerCode(ctx context.Context, customerCode string) (models.VirtualAccount, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountCols+` FROM virtual_accounts WHERE customer_code=$1`, customerCode))
}

func scanAccount(row interface{ Scan(...any) error }) (models.VirtualAccount, error) {
	var a models.VirtualAccount
	err := row.Scan(&a.UserID, &a.CustomerCode, &a.AccountNumber, &a.AccountName, &a.BankName, &a.Status, &a.UpdatedAt)
	return a, mapErr(err)
}
