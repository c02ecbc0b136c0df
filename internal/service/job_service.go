package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// JobRepository описывает зависимости JobService от слоя хранилища.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, params repository.ListJobsParams) (*repository.ListJobsResult, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Job, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Complete(ctx context.Context, jobID uuid.UUID) error
	Cancel(ctx context.Context, jobID uuid.UUID) error
	EnableCrowdsourcing(ctx context.Context, jobID, clientID uuid.UUID, roles []models.CrowdsourcingRole) (*models.Conversation, error)
	ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error)
	ListTeam(ctx context.Context, jobID uuid.UUID) ([]models.TeamMember, error)
}

// JobService содержит бизнес-логику работ.
type JobService struct {
	repo JobRepository
}

// NewJobService создаёт сервис работ.
func NewJobService(repo JobRepository) *JobService {
	return &JobService{repo: repo}
}

// CreateJobInput — данные новой работы.
type CreateJobInput struct {
	Title       string
	Description string
	Skills      []string
	Budget      float64
}

// CreateJob публикует новую работу от имени клиента.
func (s *JobService) CreateJob(ctx context.Context, clientID uuid.UUID, in CreateJobInput) (*models.Job, error) {
	if err := s.validateJobInput(in); err != nil {
		return nil, err
	}

	job := &models.Job{
		ClientID:    clientID,
		Title:       in.Title,
		Description: in.Description,
		Skills:      in.Skills,
		Budget:      in.Budget,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob возвращает работу.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ListJobs возвращает страницу работ.
func (s *JobService) ListJobs(ctx context.Context, params repository.ListJobsParams) (*repository.ListJobsResult, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if params.Status != "" {
		if _, ok := models.ValidJobStatuses[params.Status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус работы")
		}
	}
	return s.repo.List(ctx, params)
}

// ListClientJobs возвращает работы клиента.
func (s *JobService) ListClientJobs(ctx context.Context, clientID uuid.UUID) ([]models.Job, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// ListFreelancerJobs возвращает работы, где фрилансер нанят.
func (s *JobService) ListFreelancerJobs(ctx context.Context, freelancerID uuid.UUID) ([]models.Job, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// UpdateJob редактирует открытую работу её владельца.
func (s *JobService) UpdateJob(ctx context.Context, jobID, clientID uuid.UUID, in CreateJobInput) (*models.Job, error) {
	job, err := s.ownedJob(ctx, jobID, clientID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "изменить можно только открытую работу")
	}
	if err := s.validateJobInput(in); err != nil {
		return nil, err
	}

	job.Title = in.Title
	job.Description = in.Description
	job.Skills = in.Skills
	job.Budget = in.Budget
	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteJob завершает выполняемую работу.
func (s *JobService) CompleteJob(ctx context.Context, jobID, clientID uuid.UUID) error {
	if _, err := s.ownedJob(ctx, jobID, clientID); err != nil {
		return err
	}
	return s.repo.Complete(ctx, jobID)
}

// CancelJob отменяет работу.
func (s *JobService) CancelJob(ctx context.Context, jobID, clientID uuid.UUID) error {
	if _, err := s.ownedJob(ctx, jobID, clientID); err != nil {
		return err
	}
	return s.repo.Cancel(ctx, jobID)
}

// RoleInput — роль краудсорсинговой работы.
type RoleInput struct {
	Title  string
	Skills []string
}

// EnableCrowdsourcing переводит работу в краудсорсинговый режим и
// создаёт групповой чат. Обратного перехода нет.
func (s *JobService) EnableCrowdsourcing(ctx context.Context, jobID, clientID uuid.UUID, roleInputs []RoleInput) ([]models.CrowdsourcingRole, *models.Conversation, error) {
	job, err := s.ownedJob(ctx, jobID, clientID)
	if err != nil {
		return nil, nil, err
	}
	if job.IsCrowdsourced {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "работа уже в краудсорсинговом режиме")
	}
	if len(roleInputs) == 0 {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "нужна хотя бы одна роль")
	}

	roles := make([]models.CrowdsourcingRole, len(roleInputs))
	for i, in := range roleInputs {
		if err := validation.ValidateLength("название роли", in.Title, validation.MinJobTitleLength, validation.MaxJobTitleLength); err != nil {
			return nil, nil, fmt.Errorf("job service: %w", err)
		}
		if err := validation.ValidateSkills(in.Skills); err != nil {
			return nil, nil, fmt.Errorf("job service: %w", err)
		}
		roles[i] = models.CrowdsourcingRole{Title: in.Title, Skills: in.Skills}
	}

	conv, err := s.repo.EnableCrowdsourcing(ctx, jobID, clientID, roles)
	if err != nil {
		return nil, nil, err
	}
	return roles, conv, nil
}

// ListRoles возвращает роли краудсорсинговой работы.
func (s *JobService) ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error) {
	return s.repo.ListRoles(ctx, jobID)
}

// ListTeam возвращает команду работы.
func (s *JobService) ListTeam(ctx context.Context, jobID uuid.UUID) ([]models.TeamMember, error) {
	return s.repo.ListTeam(ctx, jobID)
}

func (s *JobService) ownedJob(ctx context.Context, jobID, clientID uuid.UUID) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	return job, nil
}

func (s *JobService) validateJobInput(in CreateJobInput) error {
	if err := validation.ValidateLength("заголовок", in.Title, validation.MinJobTitleLength, validation.MaxJobTitleLength); err != nil {
		return fmt.Errorf("job service: %w", err)
	}
	if err := validation.ValidateLength("описание", in.Description, validation.MinJobDescriptionLength, validation.MaxJobDescriptionLength); err != nil {
		return fmt.Errorf("job service: %w", err)
	}
	if err := validation.ValidateSkills(in.Skills); err != nil {
		return fmt.Errorf("job service: %w", err)
	}
	if err := validation.ValidateAmount("бюджет", in.Budget, validation.MinJobBudget); err != nil {
		return fmt.Errorf("job service: %w", err)
	}
	return nil
}
