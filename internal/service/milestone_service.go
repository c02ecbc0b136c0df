package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/metrics"
	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// MilestoneRepository описывает зависимости MilestoneService от слоя хранилища.
type MilestoneRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Milestone, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Milestone, error)
	ResolveTrack(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.MilestoneTrack, error)
	Add(ctx context.Context, m *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error)
	Approve(ctx context.Context, milestoneID, clientID uuid.UUID, holdPeriod time.Duration) (*models.Milestone, *models.EscrowPayment, error)
}

// MilestoneJobReader — доступ сервиса этапов к работам.
type MilestoneJobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// MilestoneService управляет жизненным циклом этапов: добавлением в
// контейнер и одобрением с запуском периода удержания выплаты.
type MilestoneService struct {
	repo       MilestoneRepository
	jobs       MilestoneJobReader
	notifier   Notifier
	holdPeriod time.Duration
}

// NewMilestoneService создаёт сервис этапов. holdPeriod — срок, на
// который одобренная выплата задерживается перед выводом.
func NewMilestoneService(repo MilestoneRepository, jobs MilestoneJobReader, notifier Notifier, holdPeriod time.Duration) *MilestoneService {
	return &MilestoneService{
		repo:       repo,
		jobs:       jobs,
		notifier:   notifier,
		holdPeriod: holdPeriod,
	}
}

// MilestoneInput — данные нового этапа.
type MilestoneInput struct {
	FreelancerID uuid.UUID
	Title        string
	Description  string
	Amount       float64
	Deadline     time.Time
}

// AddMilestone добавляет этап в контейнер работы. Контейнер находится
// один раз: для обычной работы это нанятый фрилансер, для
// краудсорсинговой дорожка участника команды. Этап, escrow-резерв и
// проводки создаются одной операцией.
func (s *MilestoneService) AddMilestone(ctx context.Context, jobID, clientID uuid.UUID, in MilestoneInput) (*models.Milestone, *models.EscrowPayment, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ClientID != clientID {
		return nil, nil, apperror.ErrForbidden
	}

	if err := s.validateMilestoneInput(in); err != nil {
		return nil, nil, err
	}

	track, err := s.repo.ResolveTrack(ctx, jobID, in.FreelancerID)
	if err != nil {
		return nil, nil, err
	}

	milestone := &models.Milestone{
		JobID:        jobID,
		TeamMemberID: track.TeamMemberID,
		FreelancerID: track.FreelancerID,
		Title:        in.Title,
		Description:  in.Description,
		Amount:       in.Amount,
		Deadline:     in.Deadline,
	}
	escrow, err := s.repo.Add(ctx, milestone, clientID)
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Notify(ctx, track.FreelancerID, EventMilestoneAdded, map[string]interface{}{
		"job_id":       jobID,
		"milestone_id": milestone.ID,
		"title":        milestone.Title,
		"amount":       milestone.Amount,
	})

	return milestone, escrow, nil
}

// ApproveMilestone одобряет этап от имени владельца работы: статус
// становится approved, escrow переходит в clearing и назначается момент
// доступности выплаты. Повторное одобрение отклоняется.
func (s *MilestoneService) ApproveMilestone(ctx context.Context, milestoneID, clientID uuid.UUID) (*models.Milestone, *models.EscrowPayment, error) {
	existing, err := s.repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	job, err := s.jobs.GetByID(ctx, existing.JobID)
	if err != nil {
		return nil, nil, err
	}
	if job.ClientID != clientID {
		return nil, nil, apperror.ErrForbidden
	}

	milestone, escrow, err := s.repo.Approve(ctx, milestoneID, clientID, s.holdPeriod)
	if err != nil {
		return nil, nil, err
	}

	metrics.MilestonesApproved.Inc()

	s.notifier.Notify(ctx, milestone.FreelancerID, EventMilestoneApproved, map[string]interface{}{
		"job_id":       milestone.JobID,
		"milestone_id": milestone.ID,
		"amount":       milestone.Amount,
		"available_at": escrow.AvailableAt,
	})

	return milestone, escrow, nil
}

// GetMilestone возвращает этап участникам работы.
func (s *MilestoneService) GetMilestone(ctx context.Context, milestoneID, userID uuid.UUID) (*models.Milestone, error) {
	milestone, err := s.repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.FreelancerID != userID {
		job, err := s.jobs.GetByID(ctx, milestone.JobID)
		if err != nil {
			return nil, err
		}
		if job.ClientID != userID {
			return nil, apperror.ErrForbidden
		}
	}
	return milestone, nil
}

// ListJobMilestones возвращает этапы работы.
func (s *MilestoneService) ListJobMilestones(ctx context.Context, jobID uuid.UUID) ([]models.Milestone, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// ListMyMilestones возвращает этапы фрилансера.
func (s *MilestoneService) ListMyMilestones(ctx context.Context, freelancerID uuid.UUID) ([]models.Milestone, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

func (s *MilestoneService) validateMilestoneInput(in MilestoneInput) error {
	if err := validation.ValidateLength("название этапа", in.Title, 1, validation.MaxJobTitleLength); err != nil {
		return fmt.Errorf("milestone service: %w", err)
	}
	if err := validation.ValidateAmount("сумма этапа", in.Amount, 1); err != nil {
		return fmt.Errorf("milestone service: %w", err)
	}
	if in.Deadline.Before(time.Now()) {
		return apperror.New(apperror.ErrCodeValidation, "дедлайн этапа должен быть в будущем")
	}
	return nil
}
