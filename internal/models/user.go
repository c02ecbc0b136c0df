package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User описывает пользователя (клиента или фрилансера).
type User struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Role         string         `db:"role" json:"role"`
	Skills       pq.StringArray `db:"skills" json:"skills"`
	Bio          *string        `db:"bio" json:"bio,omitempty"`
	Location     *string        `db:"location" json:"location,omitempty"`
	Avatar       *string        `db:"avatar" json:"avatar,omitempty"`
	HourlyRate   *float64       `db:"hourly_rate" json:"hourly_rate,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Session хранит refresh токен пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IP           *string   `db:"ip" json:"ip,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FreelancerBalance — агрегат выплат фрилансера по трём корзинам.
// Инвариант: сумма корзин равна сумме его активных, одобренных и
// выплаченных этапов; каждое движение денег вычитает из одной корзины
// и прибавляет к другой, ничего не создавая и не теряя.
type FreelancerBalance struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	InProgress float64   `db:"in_progress" json:"in_progress"`
	Pending    float64   `db:"pending" json:"pending"`
	Available  float64   `db:"available" json:"available"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Hire — запись о найме со стороны одного из участников.
// У фрилансера ведутся total_budget/earned, у клиента total_paid/pending_payment;
// обе стороны зеркалят списки активных и одобренных этапов.
type Hire struct {
	ID                 uuid.UUID   `json:"id"`
	UserID             uuid.UUID   `json:"user_id"`
	CounterpartyID     uuid.UUID   `json:"counterparty_id"`
	JobID              uuid.UUID   `json:"job_id"`
	Side               string      `json:"side"`
	Role               string      `json:"role"`
	TotalBudget        float64     `json:"total_budget"`
	Earned             float64     `json:"earned"`
	TotalPaid          float64     `json:"total_paid"`
	PendingPayment     float64     `json:"pending_payment"`
	ActiveMilestones   []uuid.UUID `json:"active_milestones"`
	ApprovedMilestones []uuid.UUID `json:"approved_milestones"`
	CreatedAt          time.Time   `json:"created_at"`
}
