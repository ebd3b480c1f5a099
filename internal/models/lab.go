package models

import "time"

// Lab представляет лабораторию - получателя средств.
type Lab struct {
	LabID           string    `db:"lab_id" json:"lab_id"`
	Name            string    `db:"name" json:"name"`
	StripeAccountID *string   `db:"stripe_account_id" json:"stripe_account_id,omitempty"` // Аккаунт выплат (nullable до завершения онбординга)
	MonthlyAmount   *float64  `db:"monthly_amount" json:"monthly_amount,omitempty"`       // Месячная сумма членства в основных единицах валюты
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// HasPayoutAccount сообщает, может ли лаборатория принимать переводы.
func (l *Lab) HasPayoutAccount() bool {
	return l.StripeAccountID != nil && *l.StripeAccountID != ""
}

// HasMembershipPlan сообщает, настроена ли месячная сумма членства.
func (l *Lab) HasMembershipPlan() bool {
	return l.MonthlyAmount != nil && *l.MonthlyAmount > 0
}

// FundingGoal представляет цель сбора средств лаборатории.
// Поле Contributed изменяется только атомарным инкрементом на стороне БД.
type FundingGoal struct {
	GoalID      string    `db:"goal_id" json:"goal_id"`
	LabID       string    `db:"lab_id" json:"lab_id"`
	Name        string    `db:"name" json:"name"`
	Contributed float64   `db:"contributed" json:"contributed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
