package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation описывает переписку владельца жилья и подрядчика.
type Conversation struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	HomeownerID  uuid.UUID  `db:"homeowner_id" json:"homeowner_id"`
	ContractorID uuid.UUID  `db:"contractor_id" json:"contractor_id"`
	ProposalID   *uuid.UUID `db:"proposal_id" json:"proposal_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Message описывает сообщение в переписке.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID  `db:"sender_id" json:"sender_id"`
	Content        string     `db:"content" json:"content"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
