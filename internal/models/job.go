package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job описывает размещённую клиентом работу.
type Job struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	ClientID            uuid.UUID      `db:"client_id" json:"client_id"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	Skills              pq.StringArray `db:"skills" json:"skills"`
	Budget              float64        `db:"budget" json:"budget"`
	Status              string         `db:"status" json:"status"`
	IsCrowdsourced      bool           `db:"is_crowdsourced" json:"is_crowdsourced"`
	HiredFreelancerID   *uuid.UUID     `db:"hired_freelancer_id" json:"hired_freelancer_id,omitempty"`
	HiredBidID          *uuid.UUID     `db:"hired_bid_id" json:"hired_bid_id,omitempty"`
	BidCount            int            `db:"bid_count" json:"bid_count"`
	Paid                float64        `db:"paid" json:"paid"`
	GroupConversationID *uuid.UUID     `db:"group_conversation_id" json:"group_conversation_id,omitempty"`
	CompletionDate      *time.Time     `db:"completion_date" json:"completion_date,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// CrowdsourcingRole — роль краудсорсинговой работы с признаком заполнения.
type CrowdsourcingRole struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	JobID     uuid.UUID      `db:"job_id" json:"job_id"`
	Title     string         `db:"title" json:"title"`
	Skills    pq.StringArray `db:"skills" json:"skills"`
	Status    string         `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// TeamMember — участник команды краудсорсинговой работы.
type TeamMember struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	JobID        uuid.UUID      `db:"job_id" json:"job_id"`
	FreelancerID uuid.UUID      `db:"freelancer_id" json:"freelancer_id"`
	Role         string         `db:"role" json:"role"`
	Skills       pq.StringArray `db:"skills" json:"skills"`
	JoinedAt     time.Time      `db:"joined_at" json:"joined_at"`
}
