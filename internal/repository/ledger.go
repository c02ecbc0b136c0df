package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
)

// Помощники двойной записи. Каждая денежная операция обновляет
// баланс фрилансера и зеркальные записи о найме обеих сторон внутри
// одной транзакции, поэтому сумма корзин in_progress + pending +
// available всегда согласована с escrow-записями.

// creditInProgressTx резервирует сумму нового этапа в корзине in_progress.
func creditInProgressTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO freelancer_balances (user_id, in_progress)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET in_progress = freelancer_balances.in_progress + EXCLUDED.in_progress,
		    updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ledger: credit in_progress %w", err)
	}
	return nil
}

// recordNewMilestoneTx проводит новый этап по записям обеих сторон:
// фрилансеру сумма резервируется в in_progress, этап попадает в его
// active_milestones, total_budget обеих сторон растёт на сумму этапа,
// у клиента дополнительно растёт pending_payment. Записи о найме
// создаются первым этапом пары и дальше накапливают каждый следующий.
func recordNewMilestoneTx(ctx context.Context, tx *sqlx.Tx, m *models.Milestone, clientID uuid.UUID, role string) error {
	if err := creditInProgressTx(ctx, tx, m.FreelancerID, m.Amount); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO hires (user_id, counterparty_id, job_id, side, role, total_budget, active_milestones)
		VALUES ($1, $2, $3, $4, $5, $6, ARRAY[$7]::uuid[])
		ON CONFLICT (user_id, job_id, counterparty_id, side) DO UPDATE
		SET total_budget = hires.total_budget + EXCLUDED.total_budget,
		    active_milestones = array_append(hires.active_milestones, $7)
	`, m.FreelancerID, clientID, m.JobID, models.HireSideFreelancer, role, m.Amount, m.ID)
	if err != nil {
		return fmt.Errorf("ledger: freelancer hire %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hires (user_id, counterparty_id, job_id, side, role, total_budget, pending_payment, active_milestones)
		VALUES ($1, $2, $3, $4, $5, $6, $6, ARRAY[$7]::uuid[])
		ON CONFLICT (user_id, job_id, counterparty_id, side) DO UPDATE
		SET total_budget = hires.total_budget + EXCLUDED.total_budget,
		    pending_payment = hires.pending_payment + EXCLUDED.pending_payment,
		    active_milestones = array_append(hires.active_milestones, $7)
	`, clientID, m.FreelancerID, m.JobID, models.HireSideClient, role, m.Amount, m.ID)
	if err != nil {
		return fmt.Errorf("ledger: client hire %w", err)
	}

	return nil
}

// recordApprovedMilestoneTx проводит одобрение этапа: сумма уходит из
// in_progress в pending, этап перемещается из active_milestones в
// approved_milestones у обеих сторон, у клиента pending_payment
// превращается в total_paid, у работы растёт paid.
func recordApprovedMilestoneTx(ctx context.Context, tx *sqlx.Tx, m *models.Milestone, clientID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE freelancer_balances
		SET in_progress = GREATEST(in_progress - $2, 0),
		    pending = pending + $2,
		    updated_at = NOW()
		WHERE user_id = $1
	`, m.FreelancerID, m.Amount)
	if err != nil {
		return fmt.Errorf("ledger: move to pending %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE hires
		SET active_milestones = array_remove(active_milestones, $5),
		    approved_milestones = array_append(approved_milestones, $5),
		    earned = earned + $6
		WHERE user_id = $1 AND counterparty_id = $2 AND job_id = $3 AND side = $4
	`, m.FreelancerID, clientID, m.JobID, models.HireSideFreelancer, m.ID, m.Amount)
	if err != nil {
		return fmt.Errorf("ledger: freelancer hire approve %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE hires
		SET active_milestones = array_remove(active_milestones, $5),
		    approved_milestones = array_append(approved_milestones, $5),
		    total_paid = total_paid + $6,
		    pending_payment = GREATEST(pending_payment - $6, 0)
		WHERE user_id = $1 AND counterparty_id = $2 AND job_id = $3 AND side = $4
	`, clientID, m.FreelancerID, m.JobID, models.HireSideClient, m.ID, m.Amount)
	if err != nil {
		return fmt.Errorf("ledger: client hire approve %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET paid = paid + $2, updated_at = NOW() WHERE id = $1`, m.JobID, m.Amount)
	if err != nil {
		return fmt.Errorf("ledger: job paid %w", err)
	}

	return nil
}

// releaseFundsTx переводит выплаченную сумму из pending в available.
func releaseFundsTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE freelancer_balances
		SET pending = GREATEST(pending - $2, 0),
		    available = available + $2,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ledger: release funds %w", err)
	}
	return nil
}
