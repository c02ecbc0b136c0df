package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/metrics"
	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

// PaymentRepository описывает зависимости PaymentService от слоя хранилища.
type PaymentRepository interface {
	GetByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.EscrowPayment, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.EscrowPayment, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.EscrowPayment, error)
	ReleaseDuePayments(ctx context.Context, now time.Time) ([]models.EscrowPayment, error)
}

// BalanceRepository — доступ к балансам и записям о найме.
type BalanceRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.FreelancerBalance, error)
	ListHires(ctx context.Context, userID uuid.UUID, side string) ([]models.Hire, error)
}

// PaymentJobReader — доступ сервиса платежей к работам.
type PaymentJobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// PaymentService отдаёт платёжные представления и выпускает созревшие
// выплаты.
type PaymentService struct {
	repo     PaymentRepository
	balances BalanceRepository
	jobs     PaymentJobReader
	notifier Notifier
}

// NewPaymentService создаёт платёжный сервис.
func NewPaymentService(repo PaymentRepository, balances BalanceRepository, jobs PaymentJobReader, notifier Notifier) *PaymentService {
	return &PaymentService{repo: repo, balances: balances, jobs: jobs, notifier: notifier}
}

// GetBalance возвращает корзины выплат фрилансера.
func (s *PaymentService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.FreelancerBalance, error) {
	return s.balances.GetBalance(ctx, userID)
}

// ListMyPayments возвращает escrow-записи фрилансера.
func (s *PaymentService) ListMyPayments(ctx context.Context, freelancerID uuid.UUID) ([]models.EscrowPayment, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// ListJobPayments возвращает escrow-записи работы её владельцу.
func (s *PaymentService) ListJobPayments(ctx context.Context, jobID, clientID uuid.UUID) ([]models.EscrowPayment, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListByJob(ctx, jobID)
}

// GetMilestonePayment возвращает escrow-запись этапа её участникам.
func (s *PaymentService) GetMilestonePayment(ctx context.Context, milestoneID, userID uuid.UUID) (*models.EscrowPayment, error) {
	escrow, err := s.repo.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if escrow.FreelancerID != userID && escrow.ClientID != userID {
		return nil, apperror.ErrForbidden
	}
	return escrow, nil
}

// ListHires возвращает записи о найме пользователя с указанной стороны.
func (s *PaymentService) ListHires(ctx context.Context, userID uuid.UUID, side string) ([]models.Hire, error) {
	if side != models.HireSideClient && side != models.HireSideFreelancer {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная сторона найма")
	}
	return s.balances.ListHires(ctx, userID, side)
}

// ReleaseDuePayments выпускает все созревшие выплаты и уведомляет
// фрилансеров. Повторный вызов безопасен.
func (s *PaymentService) ReleaseDuePayments(ctx context.Context, now time.Time) (int, error) {
	released, err := s.repo.ReleaseDuePayments(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, p := range released {
		metrics.FundsReleased.Inc()
		s.notifier.Notify(ctx, p.FreelancerID, EventFundsReleased, map[string]interface{}{
			"job_id":       p.JobID,
			"milestone_id": p.MilestoneID,
			"amount":       p.Amount,
		})
	}

	return len(released), nil
}
