package models

import "time"

// WebhookEvent представляет обработанное событие платежного провайдера.
// Хранится для идемпотентности: повторная доставка события с тем же ID
// подтверждается без повторной обработки.
type WebhookEvent struct {
	EventID     string    `db:"event_id" json:"event_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	Payload     []byte    `db:"payload" json:"payload,omitempty"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
