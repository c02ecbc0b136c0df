package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobmarket-backend/internal/logger"
	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create сохраняет заявку и увеличивает счётчик заявок работы.
// Счётчик обновляется отдельным запросом: это денормализованная
// статистика, её расхождение не ломает инварианты.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (job_id, freelancer_id, budget, delivery_time, delivery_time_unit, proposal, milestones)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		bid.JobID, bid.FreelancerID, bid.Budget, bid.DeliveryTime, bid.DeliveryTimeUnit,
		bid.Proposal, bid.Milestones,
	).Scan(&bid.ID, &bid.Status, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "вы уже подали заявку на эту работу")
		}
		return fmt.Errorf("bid repository: create %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET bid_count = bid_count + 1 WHERE id = $1`, bid.JobID); err != nil {
		logger.WithComponent("bid_repository").WithError(err).
			WithField("job_id", bid.JobID).Warn("не удалось обновить счётчик заявок")
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `SELECT * FROM bids WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by id %w", err)
	}
	return &bid, nil
}

// GetByJobAndFreelancer возвращает заявку фрилансера на конкретную работу.
func (r *BidRepository) GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid,
		`SELECT * FROM bids WHERE job_id = $1 AND freelancer_id = $2`, jobID, freelancerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by job and freelancer %w", err)
	}
	return &bid, nil
}

// ListByJob возвращает заявки на работу, новые первыми.
func (r *BidRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE job_id = $1 ORDER BY created_at DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by job %w", err)
	}
	return bids, nil
}

// ListByFreelancer возвращает заявки фрилансера.
func (r *BidRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by freelancer %w", err)
	}
	return bids, nil
}

// Update переписывает содержимое заявки, пока она в статусе pending.
func (r *BidRepository) Update(ctx context.Context, bid *models.Bid) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bids
		SET budget = $2, delivery_time = $3, delivery_time_unit = $4,
		    proposal = $5, milestones = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
	`, bid.ID, bid.Budget, bid.DeliveryTime, bid.DeliveryTimeUnit,
		bid.Proposal, bid.Milestones, models.BidStatusPending)
	if err != nil {
		return fmt.Errorf("bid repository: update %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.ErrCodeInvalidState, "изменить можно только заявку в статусе pending")
	}
	return nil
}

// Withdraw отзывает заявку. Отозвать можно только pending-заявку.
func (r *BidRepository) Withdraw(ctx context.Context, bidID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bids SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, bidID, models.BidStatusWithdrawn, models.BidStatusPending)
	if err != nil {
		return fmt.Errorf("bid repository: withdraw %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.ErrCodeInvalidState, "отозвать можно только заявку в статусе pending")
	}
	return nil
}

// SetFeedback записывает отзыв клиента на заявку.
func (r *BidRepository) SetFeedback(ctx context.Context, bidID uuid.UUID, feedback string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bids SET client_feedback = $2, updated_at = NOW() WHERE id = $1`, bidID, feedback)
	if err != nil {
		return fmt.Errorf("bid repository: set feedback %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrBidNotFound
	}
	return nil
}

// AddAttachment сохраняет запись о файле заявки.
func (r *BidRepository) AddAttachment(ctx context.Context, att *models.BidAttachment) error {
	query := `
		INSERT INTO bid_attachments (bid_id, name, path, mime_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, att.BidID, att.Name, att.Path, att.MimeType).
		Scan(&att.ID, &att.CreatedAt)
	if err != nil {
		return fmt.Errorf("bid repository: add attachment %w", err)
	}
	return nil
}

// ListAttachments возвращает файлы заявки.
func (r *BidRepository) ListAttachments(ctx context.Context, bidID uuid.UUID) ([]models.BidAttachment, error) {
	var atts []models.BidAttachment
	err := r.db.SelectContext(ctx, &atts,
		`SELECT * FROM bid_attachments WHERE bid_id = $1 ORDER BY created_at`, bidID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list attachments %w", err)
	}
	return atts, nil
}
