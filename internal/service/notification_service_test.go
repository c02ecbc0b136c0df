package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type capturingPusher struct {
	userIDs  []uuid.UUID
	payloads [][]byte
}

func (p *capturingPusher) Push(userID uuid.UUID, payload []byte) {
	p.userIDs = append(p.userIDs, userID)
	p.payloads = append(p.payloads, payload)
}

func TestNotificationService_Notify_PersistsAndPushes(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := &capturingPusher{}
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)

	svc.Notify(ctx, userID, EventOfferReceived, map[string]interface{}{"job_id": uuid.New()})

	repo.AssertExpectations(t)
	assert.Len(t, pusher.payloads, 1)
	assert.Contains(t, string(pusher.payloads[0]), EventOfferReceived)
	assert.Equal(t, userID, pusher.userIDs[0])
}

func TestNotificationService_Notify_NoPushWhenPersistFails(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := &capturingPusher{}
	svc := NewNotificationService(repo, pusher)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(errors.New("база недоступна"))

	// Сбой хранилища не должен вылиться в панику или пуш.
	svc.Notify(ctx, uuid.New(), EventBidReceived, nil)
	assert.Empty(t, pusher.payloads)
}

func TestNotificationService_Notify_NilPusher(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)

	assert.NotPanics(t, func() {
		svc.Notify(ctx, uuid.New(), EventFundsReleased, map[string]interface{}{"amount": 100})
	})
}

func TestNotificationService_List_ClampsLimit(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByUser", ctx, userID, 20, 0).Return([]models.Notification{}, nil)

	_, err := svc.List(ctx, userID, 500, -3)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
