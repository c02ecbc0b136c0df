package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

type mockMilestoneRepo struct {
	mock.Mock
}

func (m *mockMilestoneRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Milestone, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Milestone, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ResolveTrack(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.MilestoneTrack, error) {
	args := m.Called(ctx, jobID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MilestoneTrack), args.Error(1)
}

func (m *mockMilestoneRepo) Add(ctx context.Context, milestone *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error) {
	args := m.Called(ctx, milestone, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowPayment), args.Error(1)
}

func (m *mockMilestoneRepo) Approve(ctx context.Context, milestoneID, clientID uuid.UUID, holdPeriod time.Duration) (*models.Milestone, *models.EscrowPayment, error) {
	args := m.Called(ctx, milestoneID, clientID, holdPeriod)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Milestone), args.Get(1).(*models.EscrowPayment), args.Error(2)
}

const testHoldPeriod = 72 * time.Hour

func validMilestoneInput(freelancerID uuid.UUID) MilestoneInput {
	return MilestoneInput{
		FreelancerID: freelancerID,
		Title:        "Вёрстка",
		Description:  "Адаптивная вёрстка главной страницы",
		Amount:       700,
		Deadline:     time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestMilestoneService_AddMilestone_DirectTrack(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusInProgress}, nil)
	repo.On("ResolveTrack", ctx, jobID, freelancerID).
		Return(&models.MilestoneTrack{FreelancerID: freelancerID}, nil)
	escrow := &models.EscrowPayment{Status: models.EscrowStatusHeld, Amount: 700}
	repo.On("Add", ctx, mock.AnythingOfType("*models.Milestone"), clientID).Return(escrow, nil)

	milestone, gotEscrow, err := svc.AddMilestone(ctx, jobID, clientID, validMilestoneInput(freelancerID))
	assert.NoError(t, err)
	assert.Nil(t, milestone.TeamMemberID)
	assert.Equal(t, freelancerID, milestone.FreelancerID)
	assert.Equal(t, models.EscrowStatusHeld, gotEscrow.Status)
	repo.AssertExpectations(t)
}

func TestMilestoneService_AddMilestone_TeamTrack(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	memberID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, IsCrowdsourced: true}, nil)
	repo.On("ResolveTrack", ctx, jobID, freelancerID).
		Return(&models.MilestoneTrack{FreelancerID: freelancerID, TeamMemberID: &memberID}, nil)
	repo.On("Add", ctx, mock.AnythingOfType("*models.Milestone"), clientID).
		Return(&models.EscrowPayment{Status: models.EscrowStatusHeld}, nil)

	milestone, _, err := svc.AddMilestone(ctx, jobID, clientID, validMilestoneInput(freelancerID))
	assert.NoError(t, err)
	assert.NotNil(t, milestone.TeamMemberID)
	assert.Equal(t, memberID, *milestone.TeamMemberID)
}

func TestMilestoneService_AddMilestone_NotOwner(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New()}, nil)

	_, _, err := svc.AddMilestone(ctx, jobID, uuid.New(), validMilestoneInput(uuid.New()))
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Add")
}

func TestMilestoneService_AddMilestone_PastDeadline(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)

	in := validMilestoneInput(uuid.New())
	in.Deadline = time.Now().Add(-time.Hour)
	_, _, err := svc.AddMilestone(ctx, jobID, clientID, in)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "будущем")
}

func TestMilestoneService_AddMilestone_FreelancerNotOnJob(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)
	repo.On("ResolveTrack", ctx, jobID, freelancerID).Return(nil, apperror.ErrMilestoneNotFound)

	_, _, err := svc.AddMilestone(ctx, jobID, clientID, validMilestoneInput(freelancerID))
	assert.True(t, apperror.IsNotFound(err))
}

func TestMilestoneService_ApproveMilestone_PassesHoldPeriod(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	milestoneID := uuid.New()
	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()

	repo.On("GetByID", ctx, milestoneID).
		Return(&models.Milestone{ID: milestoneID, JobID: jobID, FreelancerID: freelancerID, Status: models.MilestoneStatusInProgress}, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)

	availableAt := time.Now().Add(testHoldPeriod)
	approved := &models.Milestone{ID: milestoneID, JobID: jobID, FreelancerID: freelancerID, Status: models.MilestoneStatusApproved}
	escrow := &models.EscrowPayment{Status: models.EscrowStatusClearing, AvailableAt: &availableAt}
	repo.On("Approve", ctx, milestoneID, clientID, testHoldPeriod).Return(approved, escrow, nil)

	milestone, gotEscrow, err := svc.ApproveMilestone(ctx, milestoneID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusApproved, milestone.Status)
	assert.Equal(t, models.EscrowStatusClearing, gotEscrow.Status)
	repo.AssertExpectations(t)
}

func TestMilestoneService_ApproveMilestone_NotOwner(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	milestoneID := uuid.New()
	jobID := uuid.New()

	repo.On("GetByID", ctx, milestoneID).Return(&models.Milestone{ID: milestoneID, JobID: jobID}, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New()}, nil)

	_, _, err := svc.ApproveMilestone(ctx, milestoneID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Approve")
}

func TestMilestoneService_ApproveMilestone_AlreadyApproved(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	milestoneID := uuid.New()
	jobID := uuid.New()
	clientID := uuid.New()

	repo.On("GetByID", ctx, milestoneID).
		Return(&models.Milestone{ID: milestoneID, JobID: jobID, Status: models.MilestoneStatusApproved}, nil)
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID}, nil)
	repo.On("Approve", ctx, milestoneID, clientID, testHoldPeriod).
		Return(nil, nil, apperror.New(apperror.ErrCodeInvalidState, "этап уже одобрен"))

	_, _, err := svc.ApproveMilestone(ctx, milestoneID, clientID)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestMilestoneService_GetMilestone_FreelancerSeesOwn(t *testing.T) {
	repo := new(mockMilestoneRepo)
	jobs := new(mockJobReader)
	svc := NewMilestoneService(repo, jobs, NopNotifier{}, testHoldPeriod)
	ctx := context.Background()

	milestoneID := uuid.New()
	freelancerID := uuid.New()
	repo.On("GetByID", ctx, milestoneID).
		Return(&models.Milestone{ID: milestoneID, FreelancerID: freelancerID}, nil)

	milestone, err := svc.GetMilestone(ctx, milestoneID, freelancerID)
	assert.NoError(t, err)
	assert.Equal(t, milestoneID, milestone.ID)
	jobs.AssertNotCalled(t, "GetByID")
}
