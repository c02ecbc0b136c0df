package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/metrics"
	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// HiringRepository описывает зависимости HiringService от слоя хранилища.
type HiringRepository interface {
	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	HasPendingOffer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error)
	ListPendingForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PendingOffer, error)
	AcceptOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*repository.AcceptResult, error)
	RejectOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*models.Offer, error)
}

// HiringBidReader — доступ сервиса найма к заявкам.
type HiringBidReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.Bid, error)
}

// HiringJobReader — доступ сервиса найма к работам.
type HiringJobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error)
}

// HiringService содержит бизнес-логику офферов и найма.
type HiringService struct {
	repo     HiringRepository
	bids     HiringBidReader
	jobs     HiringJobReader
	notifier Notifier
}

// NewHiringService создаёт сервис найма.
func NewHiringService(repo HiringRepository, bids HiringBidReader, jobs HiringJobReader, notifier Notifier) *HiringService {
	return &HiringService{repo: repo, bids: bids, jobs: jobs, notifier: notifier}
}

// OfferInput — шаблон первого этапа и адресат оффера.
type OfferInput struct {
	FreelancerID         uuid.UUID
	BidID                *uuid.UUID
	Role                 string
	MilestoneTitle       string
	MilestoneDescription string
	MilestoneAmount      float64
	MilestoneDeadline    time.Time
}

// SendOffer отправляет фрилансеру оффер от владельца работы.
// Оффер с ролью нанимает в команду краудсорсинговой работы, без роли
// на работу целиком.
func (s *HiringService) SendOffer(ctx context.Context, jobID, clientID uuid.UUID, in OfferInput) (*models.Offer, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "оффер можно отправить только по открытой работе")
	}
	if in.FreelancerID == clientID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя отправить оффер самому себе")
	}

	if err := s.validateMilestoneTemplate(in); err != nil {
		return nil, err
	}

	kind := models.OfferKindIndividual
	var role *string
	if in.Role != "" {
		if !job.IsCrowdsourced {
			return nil, apperror.New(apperror.ErrCodeBadRequest, "роль указывается только для краудсорсинговой работы")
		}
		kind = models.OfferKindTeam
		role = &in.Role

		if err := s.requireOpenRole(ctx, jobID, in.Role); err != nil {
			return nil, err
		}
	} else if job.IsCrowdsourced {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "для краудсорсинговой работы нужно указать роль")
	}

	pending, err := s.repo.HasPendingOffer(ctx, jobID, in.FreelancerID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.New(apperror.ErrCodeConflict, "у фрилансера уже есть необработанный оффер по этой работе")
	}

	bidID := in.BidID
	if bidID != nil {
		bid, err := s.bids.GetByID(ctx, *bidID)
		if err != nil {
			return nil, err
		}
		if bid.JobID != jobID || bid.FreelancerID != in.FreelancerID {
			return nil, apperror.New(apperror.ErrCodeBadRequest, "заявка не относится к этой работе или фрилансеру")
		}
	} else {
		// Связываем оффер с заявкой фрилансера, если она есть.
		if bid, err := s.bids.GetByJobAndFreelancer(ctx, jobID, in.FreelancerID); err == nil {
			bidID = &bid.ID
		}
	}

	offer := &models.Offer{
		JobID:                jobID,
		FreelancerID:         in.FreelancerID,
		BidID:                bidID,
		Kind:                 kind,
		Role:                 role,
		MilestoneTitle:       in.MilestoneTitle,
		MilestoneDescription: in.MilestoneDescription,
		MilestoneAmount:      in.MilestoneAmount,
		MilestoneDeadline:    in.MilestoneDeadline,
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, in.FreelancerID, EventOfferReceived, map[string]interface{}{
		"offer_id":  offer.ID,
		"job_id":    jobID,
		"job_title": job.Title,
		"kind":      kind,
	})

	return offer, nil
}

// ListMyOffers возвращает необработанные офферы фрилансера.
func (s *HiringService) ListMyOffers(ctx context.Context, freelancerID uuid.UUID) ([]models.PendingOffer, error) {
	return s.repo.ListPendingForFreelancer(ctx, freelancerID)
}

// AcceptOffer принимает оффер: найм, первый этап и escrow-резерв
// проводятся одной операцией.
func (s *HiringService) AcceptOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*repository.AcceptResult, error) {
	result, err := s.repo.AcceptOffer(ctx, offerID, freelancerID)
	if err != nil {
		return nil, err
	}

	metrics.OffersAccepted.WithLabelValues(result.Offer.Kind).Inc()

	s.notifier.Notify(ctx, result.ClientID, EventOfferAccepted, map[string]interface{}{
		"offer_id":     offerID,
		"job_id":       result.Offer.JobID,
		"freelancer_id": freelancerID,
		"milestone_id": result.Milestone.ID,
	})

	return result, nil
}

// RejectOffer отклоняет оффер.
func (s *HiringService) RejectOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.repo.RejectOffer(ctx, offerID, freelancerID)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.GetByID(ctx, offer.JobID)
	if err == nil {
		s.notifier.Notify(ctx, job.ClientID, EventOfferRejected, map[string]interface{}{
			"offer_id":      offerID,
			"job_id":        offer.JobID,
			"freelancer_id": freelancerID,
		})
	}

	return offer, nil
}

func (s *HiringService) requireOpenRole(ctx context.Context, jobID uuid.UUID, role string) error {
	roles, err := s.jobs.ListRoles(ctx, jobID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r.Title == role {
			if r.Status != models.RoleStatusOpen {
				return apperror.New(apperror.ErrCodeConflict, "роль уже занята")
			}
			return nil
		}
	}
	return apperror.New(apperror.ErrCodeNotFound, "такой роли нет в этой работе")
}

func (s *HiringService) validateMilestoneTemplate(in OfferInput) error {
	if err := validation.ValidateLength("название этапа", in.MilestoneTitle, 1, validation.MaxJobTitleLength); err != nil {
		return fmt.Errorf("hiring service: %w", err)
	}
	if err := validation.ValidateLength("описание этапа", in.MilestoneDescription, 1, validation.MaxJobDescriptionLength); err != nil {
		return fmt.Errorf("hiring service: %w", err)
	}
	if err := validation.ValidateAmount("сумма этапа", in.MilestoneAmount, 1); err != nil {
		return fmt.Errorf("hiring service: %w", err)
	}
	if in.MilestoneDeadline.Before(time.Now()) {
		return apperror.New(apperror.ErrCodeValidation, "дедлайн этапа должен быть в будущем")
	}
	return nil
}
