package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы записи о пожертвовании. Запись создается как succeeded сразу после
// успешного списания; вебхук может перевести ее в failed при асинхронном отказе.
const (
	DonationStatusSucceeded = "succeeded"
	DonationStatusFailed    = "failed"
)

// Donation представляет запись о разовом пожертвовании.
type Donation struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	LabID           string    `db:"lab_id" json:"lab_id"`
	GoalID          *string   `db:"goal_id" json:"goal_id,omitempty"`
	GoalName        string    `db:"goal_name" json:"goal_name"`
	Amount          float64   `db:"amount" json:"amount"` // В основных единицах валюты
	Caption         *string   `db:"caption" json:"caption,omitempty"`
	PaymentIntentID string    `db:"payment_intent_id" json:"payment_intent_id"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
