package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// ListJobsParams описывает фильтры списка работ.
type ListJobsParams struct {
	Status string
	Skill  string
	Search string
	Limit  int
	Offset int
}

// ListJobsResult — страница списка работ.
type ListJobsResult struct {
	Jobs  []models.Job `json:"jobs"`
	Total int          `json:"total"`
}

// Create сохраняет новую работу.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (client_id, title, description, skills, budget)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, bid_count, paid, is_crowdsourced, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		job.ClientID, job.Title, job.Description, job.Skills, job.Budget,
	).Scan(&job.ID, &job.Status, &job.BidCount, &job.Paid, &job.IsCrowdsourced, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	return nil
}

// GetByID возвращает работу по идентификатору.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, `SELECT * FROM jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, fmt.Errorf("job repository: get by id %w", err)
	}
	return &job, nil
}

// List возвращает страницу работ с фильтрацией по статусу, навыку и тексту.
func (r *JobRepository) List(ctx context.Context, params ListJobsParams) (*ListJobsResult, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if params.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, params.Status)
		idx++
	}
	if params.Skill != "" {
		where = append(where, fmt.Sprintf("$%d = ANY(skills)", idx))
		args = append(args, params.Skill)
		idx++
	}
	if params.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", idx, idx))
		args = append(args, "%"+params.Search+"%")
		idx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("job repository: count %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT * FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, idx, idx+1,
	)
	args = append(args, params.Limit, params.Offset)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, listQuery, args...); err != nil {
		return nil, fmt.Errorf("job repository: list %w", err)
	}

	return &ListJobsResult{Jobs: jobs, Total: total}, nil
}

// ListByClient возвращает работы клиента.
func (r *JobRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM jobs WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list by client %w", err)
	}
	return jobs, nil
}

// ListByFreelancer возвращает работы, на которые нанят фрилансер напрямую
// или как участник команды.
func (r *JobRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT DISTINCT j.* FROM jobs j
		LEFT JOIN team_members tm ON tm.job_id = j.id
		WHERE j.hired_freelancer_id = $1 OR tm.freelancer_id = $1
		ORDER BY j.created_at DESC
	`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list by freelancer %w", err)
	}
	return jobs, nil
}

// Update обновляет редактируемые поля работы.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET title = $2, description = $3, skills = $4, budget = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, job.Skills, job.Budget)
	if err != nil {
		return fmt.Errorf("job repository: update %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrJobNotFound
	}
	return nil
}

// Complete переводит работу из in-progress в completed.
func (r *JobRepository) Complete(ctx context.Context, jobID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, completion_date = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, jobID, models.JobStatusCompleted, models.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("job repository: complete %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.ErrCodeInvalidState, "завершить можно только работу в статусе in-progress")
	}
	return nil
}

// Cancel отменяет работу из open или in-progress и отклоняет принятую заявку.
func (r *JobRepository) Cancel(ctx context.Context, jobID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("job repository: cancel begin %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`, jobID, models.JobStatusCancelled, models.JobStatusOpen, models.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("job repository: cancel %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.ErrCodeInvalidState, "отменить можно только открытую или выполняемую работу")
	}

	// Принятая заявка отклоняется вместе с отменой работы.
	_, err = tx.ExecContext(ctx, `
		UPDATE bids SET status = $2, updated_at = NOW()
		WHERE job_id = $1 AND status = $3
	`, jobID, models.BidStatusRejected, models.BidStatusAccepted)
	if err != nil {
		return fmt.Errorf("job repository: cancel reject bid %w", err)
	}

	return tx.Commit()
}

// EnableCrowdsourcing переводит открытую работу в краудсорсинговый режим:
// создаёт роли и групповой чат. Преобразование одностороннее.
func (r *JobRepository) EnableCrowdsourcing(ctx context.Context, jobID, clientID uuid.UUID, roles []models.CrowdsourcingRole) (*models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("job repository: enable crowdsourcing begin %w", err)
	}
	defer tx.Rollback()

	var conv models.Conversation
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO conversations (job_id, is_group) VALUES ($1, TRUE)
		RETURNING id, job_id, is_group, created_at
	`, jobID).StructScan(&conv)
	if err != nil {
		return nil, fmt.Errorf("job repository: create group conversation %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)
	`, conv.ID, clientID); err != nil {
		return nil, fmt.Errorf("job repository: add client to conversation %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET is_crowdsourced = TRUE, group_conversation_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, jobID, conv.ID, models.JobStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("job repository: enable crowdsourcing %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "краудсорсинг доступен только для открытой работы")
	}

	for i := range roles {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO crowdsourcing_roles (job_id, title, skills)
			VALUES ($1, $2, $3)
			RETURNING id, status, created_at
		`, jobID, roles[i].Title, roles[i].Skills).
			Scan(&roles[i].ID, &roles[i].Status, &roles[i].CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperror.New(apperror.ErrCodeConflict, "роль с таким названием уже существует")
			}
			return nil, fmt.Errorf("job repository: create role %w", err)
		}
		roles[i].JobID = jobID
	}

	return &conv, tx.Commit()
}

// ListRoles возвращает роли краудсорсинговой работы.
func (r *JobRepository) ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error) {
	var roles []models.CrowdsourcingRole
	err := r.db.SelectContext(ctx, &roles,
		`SELECT * FROM crowdsourcing_roles WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list roles %w", err)
	}
	return roles, nil
}

// ListTeam возвращает участников команды работы.
func (r *JobRepository) ListTeam(ctx context.Context, jobID uuid.UUID) ([]models.TeamMember, error) {
	var team []models.TeamMember
	err := r.db.SelectContext(ctx, &team,
		`SELECT * FROM team_members WHERE job_id = $1 ORDER BY joined_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job repository: list team %w", err)
	}
	return team, nil
}
