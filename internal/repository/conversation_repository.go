package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/repository/common"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// ConversationRepository отвечает за переписки и сообщения.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository создаёт новый экземпляр.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate возвращает существующую переписку пары пользователей
// или создаёт новую.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, homeownerID, contractorID uuid.UUID, proposalID *uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `
		SELECT id, homeowner_id, contractor_id, proposal_id, created_at, updated_at
		FROM conversations
		WHERE homeowner_id = $1 AND contractor_id = $2
	`
	err := r.db.GetContext(ctx, &conv, query, homeownerID, contractorID)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation repository: get %w", err)
	}

	insert := `
		INSERT INTO conversations (homeowner_id, contractor_id, proposal_id)
		VALUES ($1, $2, $3)
		RETURNING id, homeowner_id, contractor_id, proposal_id, created_at, updated_at
	`
	if err := r.db.GetContext(ctx, &conv, insert, homeownerID, contractorID, proposalID); err != nil {
		return nil, fmt.Errorf("conversation repository: insert %w", err)
	}
	return &conv, nil
}

// GetByID возвращает переписку по идентификатору.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `SELECT id, homeowner_id, contractor_id, proposal_id, created_at, updated_at FROM conversations WHERE id = $1`
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by id %w", err)
	}
	return &conv, nil
}

// ListByUser возвращает переписки пользователя, свежие сверху.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	query := `
		SELECT id, homeowner_id, contractor_id, proposal_id, created_at, updated_at
		FROM conversations
		WHERE homeowner_id = $1 OR contractor_id = $1
		ORDER BY updated_at DESC
	`
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, fmt.Errorf("conversation repository: list by user %w", err)
	}
	return conversations, nil
}

// CreateMessage сохраняет сообщение и обновляет время переписки
// одной транзакцией.
func (r *ConversationRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO messages (conversation_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(ctx, query, m.ConversationID, m.SenderID, m.Content).
			Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return fmt.Errorf("conversation repository: insert message %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, m.ConversationID); err != nil {
			return fmt.Errorf("conversation repository: touch conversation %w", err)
		}
		return nil
	})
}

// ListMessages возвращает сообщения переписки в хронологическом порядке.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	query := `
		SELECT id, conversation_id, sender_id, content, read_at, created_at, updated_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &messages, query, conversationID, limit, offset); err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}
	return messages, nil
}

// MarkRead отмечает прочитанными все чужие сообщения переписки.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, conversationID, readerID); err != nil {
		return fmt.Errorf("conversation repository: mark read %w", err)
	}
	return nil
}

// CountUnread считает непрочитанные сообщения пользователя по всем перепискам.
func (r *ConversationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.homeowner_id = $1 OR c.contractor_id = $1)
		  AND m.sender_id <> $1
		  AND m.read_at IS NULL
	`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("conversation repository: count unread %w", err)
	}
	return count, nil
}
