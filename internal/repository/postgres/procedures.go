package postgres

import (
	"context"

	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type proceduresRepo struct{ db dbtx }

// ProcessEmergencyWithdrawal delegates to the process_emergency_withdrawal
// function when the database provides one. A missing function surfaces as
// repo.ErrProcedureUnavailable.
func (r *proceduresRepo) ProcessEmergencyWithdrawal(ctx context.Context, c repo.EmergencyWithdrawalCall) error {
	_, err := r.db.Exec(ctx,
		`SELECT process_emergency_withdrawal($1::text, $2::uuid, $3::text, $4::numeric, $5::numeric, $6::numeric, $7::text)`,
		c.UserID, c.PlanID, c.Option, c.Amount, c.Fee, c.NetAmount, c.Reference,
	)
	return mapErr(err)
}
