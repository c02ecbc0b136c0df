package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestone — оплачиваемый этап работы с дедлайном.
// Для прямого найма team_member_id пуст (этап принадлежит самой работе),
// для краудсорсинга этап привязан к участнику команды.
type Milestone struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JobID        uuid.UUID  `db:"job_id" json:"job_id"`
	TeamMemberID *uuid.UUID `db:"team_member_id" json:"team_member_id,omitempty"`
	FreelancerID uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Amount       float64    `db:"amount" json:"amount"`
	Deadline     time.Time  `db:"deadline" json:"deadline"`
	Status       string     `db:"status" json:"status"`
	ApprovalDate *time.Time `db:"approval_date" json:"approval_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// MilestoneTrack — контейнер этапов, найденный один раз на операцию:
// либо этапы самой работы (прямой найм), либо дорожка участника команды.
type MilestoneTrack struct {
	FreelancerID uuid.UUID
	TeamMemberID *uuid.UUID
}

// IsDirect сообщает, что контейнер принадлежит работе целиком.
func (t MilestoneTrack) IsDirect() bool {
	return t.TeamMemberID == nil
}
