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
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
)

type mockHiringRepo struct {
	mock.Mock
}

func (m *mockHiringRepo) CreateOffer(ctx context.Context, offer *models.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *mockHiringRepo) GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *mockHiringRepo) HasPendingOffer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jobID, freelancerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockHiringRepo) ListPendingForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PendingOffer, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).([]models.PendingOffer), args.Error(1)
}

func (m *mockHiringRepo) AcceptOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*repository.AcceptResult, error) {
	args := m.Called(ctx, offerID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AcceptResult), args.Error(1)
}

func (m *mockHiringRepo) RejectOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, offerID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

type mockHiringJobs struct {
	mock.Mock
}

func (m *mockHiringJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockHiringJobs) ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.CrowdsourcingRole), args.Error(1)
}

func validOfferInput(freelancerID uuid.UUID) OfferInput {
	return OfferInput{
		FreelancerID:         freelancerID,
		MilestoneTitle:       "Первый этап",
		MilestoneDescription: "Черновой вариант макета",
		MilestoneAmount:      500,
		MilestoneDeadline:    time.Now().Add(72 * time.Hour),
	}
}

func newHiringService(t *testing.T) (*HiringService, *mockHiringRepo, *mockBidRepo, *mockHiringJobs) {
	t.Helper()
	repo := new(mockHiringRepo)
	bids := new(mockBidRepo)
	jobs := new(mockHiringJobs)
	return NewHiringService(repo, bids, jobs, NopNotifier{}), repo, bids, jobs
}

func TestHiringService_SendOffer_Individual(t *testing.T) {
	svc, repo, bids, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen}, nil)
	repo.On("HasPendingOffer", ctx, jobID, freelancerID).Return(false, nil)
	bids.On("GetByJobAndFreelancer", ctx, jobID, freelancerID).Return(nil, apperror.ErrBidNotFound)
	repo.On("CreateOffer", ctx, mock.AnythingOfType("*models.Offer")).Return(nil)

	offer, err := svc.SendOffer(ctx, jobID, clientID, validOfferInput(freelancerID))
	assert.NoError(t, err)
	assert.Equal(t, models.OfferKindIndividual, offer.Kind)
	assert.Nil(t, offer.Role)
	repo.AssertExpectations(t)
}

func TestHiringService_SendOffer_NotOwner(t *testing.T) {
	svc, repo, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: uuid.New(), Status: models.JobStatusOpen}, nil)

	_, err := svc.SendOffer(ctx, jobID, uuid.New(), validOfferInput(uuid.New()))
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "CreateOffer")
}

func TestHiringService_SendOffer_JobNotOpen(t *testing.T) {
	svc, _, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusInProgress}, nil)

	_, err := svc.SendOffer(ctx, jobID, clientID, validOfferInput(uuid.New()))
	assert.True(t, apperror.IsInvalidState(err))
}

func TestHiringService_SendOffer_SelfOffer(t *testing.T) {
	svc, _, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen}, nil)

	_, err := svc.SendOffer(ctx, jobID, clientID, validOfferInput(clientID))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "самому себе")
}

func TestHiringService_SendOffer_PendingConflict(t *testing.T) {
	svc, repo, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen}, nil)
	repo.On("HasPendingOffer", ctx, jobID, freelancerID).Return(true, nil)

	_, err := svc.SendOffer(ctx, jobID, clientID, validOfferInput(freelancerID))
	assert.True(t, apperror.IsConflict(err))
	repo.AssertNotCalled(t, "CreateOffer")
}

func TestHiringService_SendOffer_RoleOnPlainJob(t *testing.T) {
	svc, _, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen}, nil)

	in := validOfferInput(uuid.New())
	in.Role = "Дизайнер"
	_, err := svc.SendOffer(ctx, jobID, clientID, in)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "краудсорсинговой")
}

func TestHiringService_SendOffer_CrowdsourcedRequiresRole(t *testing.T) {
	svc, _, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen, IsCrowdsourced: true}, nil)

	_, err := svc.SendOffer(ctx, jobID, clientID, validOfferInput(uuid.New()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "указать роль")
}

func TestHiringService_SendOffer_TeamRoleTaken(t *testing.T) {
	svc, _, _, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen, IsCrowdsourced: true}, nil)
	jobs.On("ListRoles", ctx, jobID).Return([]models.CrowdsourcingRole{
		{JobID: jobID, Title: "Дизайнер", Status: models.RoleStatusFilled},
	}, nil)

	in := validOfferInput(uuid.New())
	in.Role = "Дизайнер"
	_, err := svc.SendOffer(ctx, jobID, clientID, in)
	assert.True(t, apperror.IsConflict(err))
}

func TestHiringService_SendOffer_BidFromOtherJob(t *testing.T) {
	svc, repo, bids, jobs := newHiringService(t)
	ctx := context.Background()

	jobID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	bidID := uuid.New()

	jobs.On("GetByID", ctx, jobID).Return(&models.Job{ID: jobID, ClientID: clientID, Status: models.JobStatusOpen}, nil)
	repo.On("HasPendingOffer", ctx, jobID, freelancerID).Return(false, nil)
	bids.On("GetByID", ctx, bidID).Return(&models.Bid{ID: bidID, JobID: uuid.New(), FreelancerID: freelancerID}, nil)

	in := validOfferInput(freelancerID)
	in.BidID = &bidID
	_, err := svc.SendOffer(ctx, jobID, clientID, in)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не относится")
}

func TestHiringService_AcceptOffer(t *testing.T) {
	svc, repo, _, _ := newHiringService(t)
	ctx := context.Background()

	offerID := uuid.New()
	freelancerID := uuid.New()
	clientID := uuid.New()
	jobID := uuid.New()

	result := &repository.AcceptResult{
		Offer:     &models.Offer{ID: offerID, JobID: jobID, Kind: models.OfferKindIndividual, Status: models.OfferStatusAccepted},
		Milestone: &models.Milestone{ID: uuid.New(), JobID: jobID},
		Escrow:    &models.EscrowPayment{Status: models.EscrowStatusHeld},
		ClientID:  clientID,
	}
	repo.On("AcceptOffer", ctx, offerID, freelancerID).Return(result, nil)

	got, err := svc.AcceptOffer(ctx, offerID, freelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.OfferStatusAccepted, got.Offer.Status)
	assert.Equal(t, models.EscrowStatusHeld, got.Escrow.Status)
}

func TestHiringService_AcceptOffer_AlreadyResponded(t *testing.T) {
	svc, repo, _, _ := newHiringService(t)
	ctx := context.Background()

	offerID := uuid.New()
	freelancerID := uuid.New()
	repo.On("AcceptOffer", ctx, offerID, freelancerID).
		Return(nil, apperror.New(apperror.ErrCodeConflict, "оффер уже обработан"))

	_, err := svc.AcceptOffer(ctx, offerID, freelancerID)
	assert.True(t, apperror.IsConflict(err))
}
