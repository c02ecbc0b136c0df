package models

// JobStatus статусы работ. Переходы только вперёд:
// open -> in-progress -> completed; отмена допустима из open и in-progress.
const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in-progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// BidStatus статусы заявок фрилансеров
const (
	BidStatusPending   = "pending"
	BidStatusAccepted  = "accepted"
	BidStatusRejected  = "rejected"
	BidStatusWithdrawn = "withdrawn"
)

// OfferStatus статусы офферов (индивидуальных и командных)
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// OfferKind виды офферов
const (
	OfferKindIndividual = "individual"
	OfferKindTeam       = "team"
)

// MilestoneStatus статусы этапов. Только in-progress -> approved, без возврата.
const (
	MilestoneStatusInProgress = "in-progress"
	MilestoneStatusApproved   = "approved"
)

// EscrowStatus статусы escrow платежей.
// held: средства зарезервированы под этап;
// clearing: этап одобрен, выплата ждёт окончания периода удержания;
// released: средства доступны фрилансеру.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusClearing = "clearing"
	EscrowStatusReleased = "released"
)

// RoleStatus статусы ролей краудсорсинговой работы
const (
	RoleStatusOpen   = "open"
	RoleStatusFilled = "filled"
)

// HireSide сторона записи о найме
const (
	HireSideClient     = "client"
	HireSideFreelancer = "freelancer"
)

// UserRole роли пользователей
const (
	UserRoleFreelancer = "freelancer"
	UserRoleClient     = "client"
	UserRoleAdmin      = "admin"
)

// ValidJobStatuses список валидных статусов работ
var ValidJobStatuses = map[string]struct{}{
	JobStatusOpen:       {},
	JobStatusInProgress: {},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

// ValidDeliveryTimeUnits единицы срока выполнения заявки
var ValidDeliveryTimeUnits = map[string]struct{}{
	"days":   {},
	"weeks":  {},
	"months": {},
}
