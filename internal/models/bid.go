package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Bid — заявка фрилансера на работу. На пару (работа, фрилансер)
// допускается не более одной заявки.
type Bid struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	JobID            uuid.UUID       `db:"job_id" json:"job_id"`
	FreelancerID     uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Budget           float64         `db:"budget" json:"budget"`
	DeliveryTime     int             `db:"delivery_time" json:"delivery_time"`
	DeliveryTimeUnit string          `db:"delivery_time_unit" json:"delivery_time_unit"`
	Proposal         string          `db:"proposal" json:"proposal"`
	Milestones       json.RawMessage `db:"milestones" json:"milestones"`
	Status           string          `db:"status" json:"status"`
	ClientFeedback   *string         `db:"client_feedback" json:"client_feedback,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// BidMilestone — элемент предлагаемой фрилансером разбивки на этапы.
// Хранится внутри заявки как JSON и проверяется при записи.
type BidMilestone struct {
	Title    string     `json:"title"`
	Amount   float64    `json:"amount"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// BidAttachment описывает файл, прикреплённый к заявке.
type BidAttachment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BidID     uuid.UUID `db:"bid_id" json:"bid_id"`
	Name      string    `db:"name" json:"name"`
	Path      string    `db:"path" json:"path"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
