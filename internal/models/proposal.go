package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Proposal описывает коммерческое предложение подрядчика владельцу жилья.
// HomeownerID может быть пустым, пока предложение остаётся черновиком
// без выбранного получателя.
type Proposal struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	ContractorID        uuid.UUID       `db:"contractor_id" json:"contractor_id"`
	HomeownerID         *uuid.UUID      `db:"homeowner_id" json:"homeowner_id,omitempty"`
	PropertyID          *uuid.UUID      `db:"property_id" json:"property_id,omitempty"`
	Title               string          `db:"title" json:"title"`
	Description         string          `db:"description" json:"description"`
	ServiceType         string          `db:"service_type" json:"service_type"`
	EstimatedCost       decimal.Decimal `db:"estimated_cost" json:"estimated_cost"`
	EstimatedDuration   *string         `db:"estimated_duration" json:"estimated_duration,omitempty"`
	Scope               *string         `db:"scope" json:"scope,omitempty"`
	Materials           pq.StringArray  `db:"materials" json:"materials"`
	WarrantyPeriod      *string         `db:"warranty_period" json:"warranty_period,omitempty"`
	ValidUntil          *time.Time      `db:"valid_until" json:"valid_until,omitempty"`
	Status              string          `db:"status" json:"status"`
	CustomerNotes       *string         `db:"customer_notes" json:"customer_notes,omitempty"`
	InternalNotes       *string         `db:"internal_notes" json:"internal_notes,omitempty"`
	Attachments         pq.StringArray  `db:"attachments" json:"attachments"`
	ContractFilePath    *string         `db:"contract_file_path" json:"contract_file_path,omitempty"`
	ContractSignedAt    *time.Time      `db:"contract_signed_at" json:"contract_signed_at,omitempty"`
	CustomerSignature   *string         `db:"customer_signature" json:"customer_signature,omitempty"`
	ContractorSignature *string         `db:"contractor_signature" json:"contractor_signature,omitempty"`
	SignerName          *string         `db:"signer_name" json:"signer_name,omitempty"`
	SignatureIPAddress  *string         `db:"signature_ip_address" json:"signature_ip_address,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// IsSignable сообщает, можно ли предлагать подписание договора:
// договор загружен, подписи ещё нет и получатель назначен.
func (p *Proposal) IsSignable() bool {
	return p.ContractFilePath != nil && p.CustomerSignature == nil && p.HomeownerID != nil
}

// ProposalPatch содержит частичное обновление предложения.
// nil-поле означает «не трогать».
type ProposalPatch struct {
	HomeownerID       *uuid.UUID `json:"homeowner_id,omitempty"`
	PropertyID        *uuid.UUID `json:"property_id,omitempty"`
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	ServiceType       *string    `json:"service_type,omitempty"`
	EstimatedCost     *string    `json:"estimated_cost,omitempty"`
	EstimatedDuration *string    `json:"estimated_duration,omitempty"`
	Scope             *string    `json:"scope,omitempty"`
	Materials         *string    `json:"materials,omitempty"`
	WarrantyPeriod    *string    `json:"warranty_period,omitempty"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	Status            *string    `json:"status,omitempty"`
	CustomerNotes     *string    `json:"customer_notes,omitempty"`
	InternalNotes     *string    `json:"internal_notes,omitempty"`
	Attachments       []string   `json:"attachments,omitempty"`
}
