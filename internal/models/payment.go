package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowPayment — запись о средствах, зарезервированных под этап.
// Ровно одна запись на этап; amount неизменяем после создания и всегда
// равен сумме этапа. available_at заполняется при одобрении этапа:
// момент, когда свип переведёт выплату из pending в available.
type EscrowPayment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JobID        uuid.UUID  `db:"job_id" json:"job_id"`
	MilestoneID  uuid.UUID  `db:"milestone_id" json:"milestone_id"`
	FreelancerID uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	Amount       float64    `db:"amount" json:"amount"`
	Status       string     `db:"status" json:"status"`
	AvailableAt  *time.Time `db:"available_at" json:"available_at,omitempty"`
	ReleasedAt   *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
