package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// ConversationRepository описывает зависимости ConversationService от слоя хранилища.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation, participants []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

// ConversationService содержит бизнес-логику чатов.
type ConversationService struct {
	repo     ConversationRepository
	notifier Notifier
}

// NewConversationService создаёт сервис чатов.
func NewConversationService(repo ConversationRepository, notifier Notifier) *ConversationService {
	return &ConversationService{repo: repo, notifier: notifier}
}

// StartConversation создаёт личный чат между двумя пользователями.
func (s *ConversationService) StartConversation(ctx context.Context, initiatorID, peerID uuid.UUID, jobID *uuid.UUID) (*models.Conversation, error) {
	if initiatorID == peerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя начать чат с самим собой")
	}

	conv := &models.Conversation{JobID: jobID}
	if err := s.repo.Create(ctx, conv, []uuid.UUID{initiatorID, peerID}); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListMyConversations возвращает чаты пользователя.
func (s *ConversationService) ListMyConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SendMessage отправляет сообщение в чат от имени участника и
// уведомляет остальных участников.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error) {
	if err := validation.ValidateLength("сообщение", content, validation.MinMessageLength, validation.MaxMessageLength); err != nil {
		return nil, fmt.Errorf("conversation service: %w", err)
	}

	if err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	participants, err := s.repo.ListParticipants(ctx, conversationID)
	if err == nil {
		for _, userID := range participants {
			if userID == senderID {
				continue
			}
			s.notifier.Notify(ctx, userID, EventMessageReceived, map[string]interface{}{
				"conversation_id": conversationID,
				"message_id":      msg.ID,
				"sender_id":       senderID,
			})
		}
	}

	return msg, nil
}

// ListMessages возвращает сообщения чата его участнику.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

func (s *ConversationService) requireParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrCodeForbidden, "вы не участник этого чата")
	}
	return nil
}
