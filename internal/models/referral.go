package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Referral фиксирует приглашённого агентом пользователя.
type Referral struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AgentID       uuid.UUID  `db:"agent_id" json:"agent_id"`
	ReferredID    uuid.UUID  `db:"referred_id" json:"referred_id"`
	ConvertedAt   *time.Time `db:"converted_at" json:"converted_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Commission начисляется агенту после подписания договора
// по предложению приглашённого им пользователя.
type Commission struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	AgentID    uuid.UUID       `db:"agent_id" json:"agent_id"`
	ProposalID uuid.UUID       `db:"proposal_id" json:"proposal_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
