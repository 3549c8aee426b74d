package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Property описывает дом владельца.
type Property struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	HomeownerID   uuid.UUID      `db:"homeowner_id" json:"homeowner_id"`
	Address       string         `db:"address" json:"address"`
	City          string         `db:"city" json:"city"`
	ClimateZone   string         `db:"climate_zone" json:"climate_zone"`
	YearBuilt     *int           `db:"year_built" json:"year_built,omitempty"`
	SquareFootage *int           `db:"square_footage" json:"square_footage,omitempty"`
	HomeSystems   pq.StringArray `db:"home_systems" json:"home_systems"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// ServiceRecord фиксирует выполненную работу по дому.
type ServiceRecord struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PropertyID   uuid.UUID       `db:"property_id" json:"property_id"`
	ContractorID *uuid.UUID      `db:"contractor_id" json:"contractor_id,omitempty"`
	ProposalID   *uuid.UUID      `db:"proposal_id" json:"proposal_id,omitempty"`
	ServiceType  string          `db:"service_type" json:"service_type"`
	Description  string          `db:"description" json:"description"`
	Cost         decimal.Decimal `db:"cost" json:"cost"`
	PerformedAt  time.Time       `db:"performed_at" json:"performed_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
