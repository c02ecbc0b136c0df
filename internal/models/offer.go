package models

import (
	"time"

	"github.com/google/uuid"
)

// Offer — предложение клиента о найме с шаблоном первого этапа.
// kind=individual нанимает на всю работу, kind=team закрывает одну роль
// краудсорсинговой работы. Ответить может только адресат и только пока
// статус pending; исход терминален.
type Offer struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	JobID                uuid.UUID  `db:"job_id" json:"job_id"`
	FreelancerID         uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	BidID                *uuid.UUID `db:"bid_id" json:"bid_id,omitempty"`
	Kind                 string     `db:"kind" json:"kind"`
	Role                 *string    `db:"role" json:"role,omitempty"`
	Status               string     `db:"status" json:"status"`
	MilestoneTitle       string     `db:"milestone_title" json:"milestone_title"`
	MilestoneDescription string     `db:"milestone_description" json:"milestone_description"`
	MilestoneAmount      float64    `db:"milestone_amount" json:"milestone_amount"`
	MilestoneDeadline    time.Time  `db:"milestone_deadline" json:"milestone_deadline"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	RespondedAt          *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

// PendingOffer — оффер с контекстом работы для выдачи фрилансеру.
type PendingOffer struct {
	Offer
	JobTitle string    `db:"job_title" json:"job_title"`
	ClientID uuid.UUID `db:"client_id" json:"client_id"`
}
