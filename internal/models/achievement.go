package models

import (
	"time"

	"github.com/google/uuid"
)

// Коды достижений подрядчика.
const (
	AchievementFirstProposal  = "first_proposal"
	AchievementFirstSent      = "first_sent"
	AchievementFirstContract  = "first_contract"
	AchievementFiveAccepted   = "five_accepted"
	AchievementBigEarner      = "big_earner"
)

// Achievement описывает разблокированное достижение пользователя.
type Achievement struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	UnlockedAt  time.Time `db:"unlocked_at" json:"unlocked_at"`
}
