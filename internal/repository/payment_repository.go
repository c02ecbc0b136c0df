package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// insertEscrowTx резервирует средства под этап. На этап допускается
// ровно одна escrow-запись; ошибка записи означает отказ платёжной
// подсистемы и поднимается как DEPENDENCY_FAILURE, чтобы вызывающая
// транзакция откатила найм или этап целиком.
func insertEscrowTx(ctx context.Context, tx *sqlx.Tx, m *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error) {
	escrow := &models.EscrowPayment{
		JobID:        m.JobID,
		MilestoneID:  m.ID,
		FreelancerID: m.FreelancerID,
		ClientID:     clientID,
		Amount:       m.Amount,
	}
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO escrow_payments (job_id, milestone_id, freelancer_id, client_id, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`, escrow.JobID, escrow.MilestoneID, escrow.FreelancerID, escrow.ClientID, escrow.Amount,
	).Scan(&escrow.ID, &escrow.Status, &escrow.CreatedAt)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDependencyFailure,
			"не удалось зарезервировать средства под этап")
	}
	return escrow, nil
}

// markClearingTx переводит escrow-запись этапа из held в clearing и
// назначает момент, когда свип сделает выплату доступной.
func markClearingTx(ctx context.Context, tx *sqlx.Tx, milestoneID uuid.UUID, availableAt time.Time) (*models.EscrowPayment, error) {
	var escrow models.EscrowPayment
	err := tx.QueryRowxContext(ctx, `
		UPDATE escrow_payments SET status = $2, available_at = $3
		WHERE milestone_id = $1 AND status = $4
		RETURNING *
	`, milestoneID, models.EscrowStatusClearing, availableAt, models.EscrowStatusHeld).StructScan(&escrow)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "средства этапа не находятся в резерве")
		}
		return nil, fmt.Errorf("payment repository: mark clearing %w", err)
	}
	return &escrow, nil
}

// GetByMilestone возвращает escrow-запись этапа.
func (r *PaymentRepository) GetByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.EscrowPayment, error) {
	var escrow models.EscrowPayment
	err := r.db.GetContext(ctx, &escrow,
		`SELECT * FROM escrow_payments WHERE milestone_id = $1`, milestoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get by milestone %w", err)
	}
	return &escrow, nil
}

// ListByFreelancer возвращает escrow-записи фрилансера, новые первыми.
func (r *PaymentRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.EscrowPayment, error) {
	var payments []models.EscrowPayment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM escrow_payments WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by freelancer %w", err)
	}
	return payments, nil
}

// ListByJob возвращает escrow-записи работы.
func (r *PaymentRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.EscrowPayment, error) {
	var payments []models.EscrowPayment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM escrow_payments WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by job %w", err)
	}
	return payments, nil
}

// ReleaseDuePayments переводит все созревшие выплаты из clearing в
// released и перекладывает суммы из pending в available. Операция
// идемпотентна: уже выпущенные записи под условие не попадают, поэтому
// повторный запуск свипа безопасен. Возвращает выпущенные записи.
func (r *PaymentRepository) ReleaseDuePayments(ctx context.Context, now time.Time) ([]models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: release begin %w", err)
	}
	defer tx.Rollback()

	var due []models.EscrowPayment
	err = tx.SelectContext(ctx, &due, `
		SELECT * FROM escrow_payments
		WHERE status = $1 AND available_at <= $2
		ORDER BY available_at
		FOR UPDATE SKIP LOCKED
	`, models.EscrowStatusClearing, now)
	if err != nil {
		return nil, fmt.Errorf("payment repository: select due %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	released := make([]models.EscrowPayment, 0, len(due))
	for i := range due {
		res, err := tx.ExecContext(ctx, `
			UPDATE escrow_payments SET status = $2, released_at = $3
			WHERE id = $1 AND status = $4
		`, due[i].ID, models.EscrowStatusReleased, now, models.EscrowStatusClearing)
		if err != nil {
			return nil, fmt.Errorf("payment repository: release %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		due[i].Status = models.EscrowStatusReleased
		due[i].ReleasedAt = &now

		if err := releaseFundsTx(ctx, tx, due[i].FreelancerID, due[i].Amount); err != nil {
			return nil, err
		}
		released = append(released, due[i])
	}

	return released, tx.Commit()
}
