package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы членства. Подписка создается как incomplete (payment_behavior =
// default_incomplete), вебхук переводит ее в active или canceled.
const (
	MembershipStatusIncomplete = "incomplete"
	MembershipStatusActive     = "active"
	MembershipStatusCanceled   = "canceled"
)

// Membership представляет запись о регулярной месячной подписке на лабораторию.
type Membership struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	UserID               string     `db:"user_id" json:"user_id"`
	LabID                string     `db:"lab_id" json:"lab_id"`
	MonthlyAmount        float64    `db:"monthly_amount" json:"monthly_amount"` // В основных единицах валюты
	StripeSubscriptionID string     `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	Status               string     `db:"status" json:"status"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	CanceledAt           *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
}
