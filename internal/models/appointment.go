package models

import (
	"time"

	"github.com/google/uuid"
)

// Appointment описывает запланированный визит подрядчика.
type Appointment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	HomeownerID  uuid.UUID  `db:"homeowner_id" json:"homeowner_id"`
	ContractorID uuid.UUID  `db:"contractor_id" json:"contractor_id"`
	ProposalID   *uuid.UUID `db:"proposal_id" json:"proposal_id,omitempty"`
	PropertyID   *uuid.UUID `db:"property_id" json:"property_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	ScheduledAt  time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
