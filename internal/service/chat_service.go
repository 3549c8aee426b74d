package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/validation"
)

// ChatRepositoryAPI описывает хранилище переписок.
type ChatRepositoryAPI interface {
	GetOrCreate(ctx context.Context, homeownerID, contractorID uuid.UUID, proposalID *uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error
}

// ChatService ведёт переписки владельцев жилья и подрядчиков.
type ChatService struct {
	repo     ChatRepositoryAPI
	users    UserLookup
	notifier Notifier
}

// NewChatService создаёт сервис переписок.
func NewChatService(repo ChatRepositoryAPI, users UserLookup, notifier Notifier) *ChatService {
	return &ChatService{repo: repo, users: users, notifier: notifier}
}

// StartConversation открывает или возвращает переписку пары пользователей.
// Инициатором может быть любая из сторон.
func (s *ChatService) StartConversation(ctx context.Context, initiatorID, counterpartID uuid.UUID, proposalID *uuid.UUID) (*models.Conversation, error) {
	initiator, err := s.users.GetByID(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	counterpart, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		return nil, apperror.ErrUserNotFound
	}

	var homeownerID, contractorID uuid.UUID
	switch {
	case initiator.Role == models.RoleHomeowner && counterpart.Role == models.RoleContractor:
		homeownerID, contractorID = initiatorID, counterpartID
	case initiator.Role == models.RoleContractor && counterpart.Role == models.RoleHomeowner:
		homeownerID, contractorID = counterpartID, initiatorID
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "переписка возможна между владельцем жилья и подрядчиком")
	}

	return s.repo.GetOrCreate(ctx, homeownerID, contractorID, proposalID)
}

// ListConversations возвращает переписки пользователя.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SendMessage отправляет сообщение в переписку.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, content string) (*models.Message, error) {
	if err := validation.ValidateMessageContent(content); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	conv, err := s.getParty(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		recipient := conv.HomeownerID
		if senderID == conv.HomeownerID {
			recipient = conv.ContractorID
		}
		_ = s.notifier.BroadcastToUser(recipient, "message.received", message)
	}

	return message, nil
}

// ListMessages возвращает сообщения переписки и отмечает чужие
// прочитанными.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if _, err := s.getParty(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return messages, nil
}

// getParty загружает переписку и проверяет участие пользователя.
func (s *ChatService) getParty(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.ErrConversationNotFound
		}
		return nil, err
	}
	if conv.HomeownerID != userID && conv.ContractorID != userID {
		return nil, apperror.ErrForbidden
	}
	return conv, nil
}
