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

// MilestoneRepository управляет жизненным циклом этапов. Добавление и
// одобрение этапа проводятся одной транзакцией вместе с escrow-записью
// и проводками по записям найма.
type MilestoneRepository struct {
	db *sqlx.DB
}

func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// GetByID возвращает этап по идентификатору.
func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	err := r.db.GetContext(ctx, &m, `SELECT * FROM milestones WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("milestone repository: get by id %w", err)
	}
	return &m, nil
}

// ListByJob возвращает этапы работы в порядке создания.
func (r *MilestoneRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.SelectContext(ctx, &milestones,
		`SELECT * FROM milestones WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("milestone repository: list by job %w", err)
	}
	return milestones, nil
}

// ListByFreelancer возвращает этапы фрилансера.
func (r *MilestoneRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.SelectContext(ctx, &milestones,
		`SELECT * FROM milestones WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("milestone repository: list by freelancer %w", err)
	}
	return milestones, nil
}

// ResolveTrack находит контейнер этапов работы один раз на операцию:
// для обычной работы это нанятый фрилансер, для краудсорсинговой
// дорожка участника команды.
func (r *MilestoneRepository) ResolveTrack(ctx context.Context, jobID uuid.UUID, freelancerID uuid.UUID) (*models.MilestoneTrack, error) {
	var job struct {
		IsCrowdsourced    bool       `db:"is_crowdsourced"`
		HiredFreelancerID *uuid.UUID `db:"hired_freelancer_id"`
	}
	err := r.db.GetContext(ctx, &job,
		`SELECT is_crowdsourced, hired_freelancer_id FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, fmt.Errorf("milestone repository: resolve track %w", err)
	}

	if !job.IsCrowdsourced {
		if job.HiredFreelancerID == nil || *job.HiredFreelancerID != freelancerID {
			return nil, apperror.New(apperror.ErrCodeNotFound, "фрилансер не нанят на эту работу")
		}
		return &models.MilestoneTrack{FreelancerID: freelancerID}, nil
	}

	var memberID uuid.UUID
	err = r.db.GetContext(ctx, &memberID,
		`SELECT id FROM team_members WHERE job_id = $1 AND freelancer_id = $2`, jobID, freelancerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "фрилансер не состоит в команде этой работы")
		}
		return nil, fmt.Errorf("milestone repository: resolve track %w", err)
	}
	return &models.MilestoneTrack{FreelancerID: freelancerID, TeamMemberID: &memberID}, nil
}

// Add создаёт этап в найденном контейнере вместе с escrow-резервом и
// проводками. Этап добавляется только к выполняемой работе.
func (r *MilestoneRepository) Add(ctx context.Context, m *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("milestone repository: add begin %w", err)
	}
	defer tx.Rollback()

	var jobStatus string
	err = tx.GetContext(ctx, &jobStatus,
		`SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, m.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, fmt.Errorf("milestone repository: lock job %w", err)
	}
	if jobStatus != models.JobStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "этап можно добавить только к выполняемой работе")
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO milestones (job_id, team_member_id, freelancer_id, title, description, amount, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at
	`, m.JobID, m.TeamMemberID, m.FreelancerID, m.Title, m.Description, m.Amount, m.Deadline,
	).Scan(&m.ID, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("milestone repository: insert %w", err)
	}

	escrow, err := insertEscrowTx(ctx, tx, m, clientID)
	if err != nil {
		return nil, err
	}

	role := "Individual Hire"
	if m.TeamMemberID != nil {
		if err := tx.GetContext(ctx, &role,
			`SELECT role FROM team_members WHERE id = $1`, *m.TeamMemberID); err != nil {
			return nil, fmt.Errorf("milestone repository: member role %w", err)
		}
	}
	if err := recordNewMilestoneTx(ctx, tx, m, clientID, role); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// Approve одобряет этап и запускает период удержания выплаты.
// Повторное одобрение возвращает INVALID_STATE, параллельные запросы
// разводит условное обновление статуса.
func (r *MilestoneRepository) Approve(ctx context.Context, milestoneID, clientID uuid.UUID, holdPeriod time.Duration) (*models.Milestone, *models.EscrowPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("milestone repository: approve begin %w", err)
	}
	defer tx.Rollback()

	var m models.Milestone
	err = tx.QueryRowxContext(ctx, `
		UPDATE milestones SET status = $2, approval_date = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *
	`, milestoneID, models.MilestoneStatusApproved, models.MilestoneStatusInProgress).StructScan(&m)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("milestone repository: approve %w", err)
		}
		var exists bool
		if getErr := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM milestones WHERE id = $1)`, milestoneID); getErr != nil {
			return nil, nil, fmt.Errorf("milestone repository: approve %w", getErr)
		}
		if !exists {
			return nil, nil, apperror.ErrMilestoneNotFound
		}
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "этап уже одобрен")
	}

	escrow, err := markClearingTx(ctx, tx, m.ID, m.ApprovalDate.Add(holdPeriod))
	if err != nil {
		return nil, nil, err
	}

	if err := recordApprovedMilestoneTx(ctx, tx, &m, clientID); err != nil {
		return nil, nil, err
	}

	return &m, escrow, tx.Commit()
}
