package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MaintenanceTask описывает правило сезонного обслуживания из справочника.
// Months перечисляет месяцы (1-12), в которые задача актуальна;
// ClimateZones и HomeSystems сужают применимость, пустой список
// означает «для всех».
type MaintenanceTask struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Code         string         `db:"code" json:"code"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Months       pq.Int64Array  `db:"months" json:"months"`
	ClimateZones pq.StringArray `db:"climate_zones" json:"climate_zones"`
	HomeSystems  pq.StringArray `db:"home_systems" json:"home_systems"`
	Priority     int            `db:"priority" json:"priority"`
}

// MaintenanceCompletion отмечает выполнение задачи по конкретному дому.
type MaintenanceCompletion struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PropertyID  uuid.UUID `db:"property_id" json:"property_id"`
	TaskID      uuid.UUID `db:"task_id" json:"task_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// MaintenancePreference хранит настройку отображения задачи для дома
// (например, скрытую владельцем задачу). Хранится на сервере, а не
// в локальном состоянии клиента.
type MaintenancePreference struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PropertyID uuid.UUID `db:"property_id" json:"property_id"`
	TaskID     uuid.UUID `db:"task_id" json:"task_id"`
	Hidden     bool      `db:"hidden" json:"hidden"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
