package models

// PaymentMethodSummary краткое описание платежного метода по умолчанию,
// отдаваемое клиенту (и кешируемое в Redis).
type PaymentMethodSummary struct {
	Type     string `json:"type"` // card или us_bank_account
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month,omitempty"`
	ExpYear  int64  `json:"exp_year,omitempty"`
	BankName string `json:"bank_name,omitempty"`
}

// BankAccountSummary краткое описание банковского счета аккаунта выплат.
type BankAccountSummary struct {
	Last4         string `json:"last4"`
	BankName      string `json:"bankName"`
	Status        string `json:"status"`
	AccountHolder string `json:"accountHolder"`
}
