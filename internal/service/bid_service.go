package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// BidRepository описывает зависимости BidService от слоя хранилища.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.Bid, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error)
	Update(ctx context.Context, bid *models.Bid) error
	Withdraw(ctx context.Context, bidID uuid.UUID) error
	SetFeedback(ctx context.Context, bidID uuid.UUID, feedback string) error
	AddAttachment(ctx context.Context, att *models.BidAttachment) error
	ListAttachments(ctx context.Context, bidID uuid.UUID) ([]models.BidAttachment, error)
}

// BidJobReader — доступ сервиса заявок к работам.
type BidJobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// BidService содержит бизнес-логику заявок фрилансеров.
type BidService struct {
	repo     BidRepository
	jobs     BidJobReader
	notifier Notifier
}

// NewBidService создаёт сервис заявок.
func NewBidService(repo BidRepository, jobs BidJobReader, notifier Notifier) *BidService {
	return &BidService{repo: repo, jobs: jobs, notifier: notifier}
}

// BidInput — содержимое заявки.
type BidInput struct {
	Budget           float64
	DeliveryTime     int
	DeliveryTimeUnit string
	Proposal         string
	Milestones       []models.BidMilestone
}

// SubmitBid подаёт заявку фрилансера на работу. Повторная подача на ту
// же работу отклоняется.
func (s *BidService) SubmitBid(ctx context.Context, jobID, freelancerID uuid.UUID, in BidInput) (*models.Bid, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == freelancerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя подать заявку на собственную работу")
	}

	milestones, err := s.validateBidInput(in)
	if err != nil {
		return nil, err
	}

	bid := &models.Bid{
		JobID:            jobID,
		FreelancerID:     freelancerID,
		Budget:           in.Budget,
		DeliveryTime:     in.DeliveryTime,
		DeliveryTimeUnit: in.DeliveryTimeUnit,
		Proposal:         in.Proposal,
		Milestones:       milestones,
	}
	if err := s.repo.Create(ctx, bid); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, job.ClientID, EventBidReceived, map[string]interface{}{
		"job_id":    jobID,
		"bid_id":    bid.ID,
		"job_title": job.Title,
	})

	return bid, nil
}

// GetBid возвращает заявку. Содержимое видно её автору и владельцу работы.
func (s *BidService) GetBid(ctx context.Context, bidID, userID uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, bid, userID); err != nil {
		return nil, err
	}
	return bid, nil
}

// ListJobBids возвращает заявки на работу. Доступно владельцу работы.
func (s *BidService) ListJobBids(ctx context.Context, jobID, clientID uuid.UUID) ([]models.Bid, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListByJob(ctx, jobID)
}

// ListMyBids возвращает заявки фрилансера.
func (s *BidService) ListMyBids(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// UpdateBid переписывает pending-заявку её автора, пока работа ещё
// открыта.
func (s *BidService) UpdateBid(ctx context.Context, bidID, freelancerID uuid.UUID, in BidInput) (*models.Bid, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}

	job, err := s.jobs.GetByID(ctx, bid.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "заявку можно изменить только пока работа открыта")
	}

	milestones, err := s.validateBidInput(in)
	if err != nil {
		return nil, err
	}

	bid.Budget = in.Budget
	bid.DeliveryTime = in.DeliveryTime
	bid.DeliveryTimeUnit = in.DeliveryTimeUnit
	bid.Proposal = in.Proposal
	bid.Milestones = milestones
	if err := s.repo.Update(ctx, bid); err != nil {
		return nil, err
	}
	return bid, nil
}

// WithdrawBid отзывает pending-заявку её автора.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, freelancerID uuid.UUID) error {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.FreelancerID != freelancerID {
		return apperror.ErrForbidden
	}
	if err := s.repo.Withdraw(ctx, bidID); err != nil {
		return err
	}

	if job, err := s.jobs.GetByID(ctx, bid.JobID); err == nil {
		s.notifier.Notify(ctx, job.ClientID, EventBidWithdrawn, map[string]interface{}{
			"job_id": bid.JobID,
			"bid_id": bidID,
		})
	}
	return nil
}

// LeaveFeedback записывает отзыв клиента на заявку и уведомляет её
// автора.
func (s *BidService) LeaveFeedback(ctx context.Context, bidID, clientID uuid.UUID, feedback string) error {
	if err := validation.ValidateLength("отзыв", feedback, 1, validation.MaxFeedbackLength); err != nil {
		return fmt.Errorf("bid service: %w", err)
	}

	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return err
	}
	job, err := s.jobs.GetByID(ctx, bid.JobID)
	if err != nil {
		return err
	}
	if job.ClientID != clientID {
		return apperror.ErrForbidden
	}
	if err := s.repo.SetFeedback(ctx, bidID, feedback); err != nil {
		return err
	}

	s.notifier.Notify(ctx, bid.FreelancerID, EventBidFeedback, map[string]interface{}{
		"job_id":    bid.JobID,
		"bid_id":    bidID,
		"job_title": job.Title,
	})
	return nil
}

// AttachFile прикрепляет файл к заявке её автора.
func (s *BidService) AttachFile(ctx context.Context, bidID, freelancerID uuid.UUID, name, path, mimeType string) (*models.BidAttachment, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}

	att := &models.BidAttachment{
		BidID:    bidID,
		Name:     name,
		Path:     path,
		MimeType: mimeType,
	}
	if err := s.repo.AddAttachment(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

// ListAttachments возвращает файлы заявки.
func (s *BidService) ListAttachments(ctx context.Context, bidID, userID uuid.UUID) ([]models.BidAttachment, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, bid, userID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, bidID)
}

func (s *BidService) authorize(ctx context.Context, bid *models.Bid, userID uuid.UUID) error {
	if bid.FreelancerID == userID {
		return nil
	}
	job, err := s.jobs.GetByID(ctx, bid.JobID)
	if err != nil {
		return err
	}
	if job.ClientID != userID {
		return apperror.ErrForbidden
	}
	return nil
}

// validateBidInput проверяет заявку и сериализует разбивку на этапы.
func (s *BidService) validateBidInput(in BidInput) (json.RawMessage, error) {
	if err := validation.ValidateAmount("бюджет", in.Budget, 1); err != nil {
		return nil, fmt.Errorf("bid service: %w", err)
	}
	if in.DeliveryTime <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок выполнения должен быть положительным")
	}
	if _, ok := models.ValidDeliveryTimeUnits[in.DeliveryTimeUnit]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная единица срока выполнения")
	}
	if err := validation.ValidateLength("сопроводительное письмо", in.Proposal, validation.MinProposalLength, validation.MaxProposalLength); err != nil {
		return nil, fmt.Errorf("bid service: %w", err)
	}

	for _, m := range in.Milestones {
		if err := validation.ValidateLength("название этапа", m.Title, 1, validation.MaxJobTitleLength); err != nil {
			return nil, fmt.Errorf("bid service: %w", err)
		}
		if err := validation.ValidateAmount("сумма этапа", m.Amount, 1); err != nil {
			return nil, fmt.Errorf("bid service: %w", err)
		}
	}

	milestones := in.Milestones
	if milestones == nil {
		milestones = []models.BidMilestone{}
	}
	raw, err := json.Marshal(milestones)
	if err != nil {
		return nil, fmt.Errorf("bid service: сериализация этапов %w", err)
	}
	return raw, nil
}
