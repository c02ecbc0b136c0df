package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

// HiringRepository отвечает за офферы и их принятие. Принятие оффера
// проводит весь найм одной транзакцией: первый этап, escrow-резерв,
// статусы работы и заявок, записи о найме обеих сторон.
type HiringRepository struct {
	db *sqlx.DB
}

func NewHiringRepository(db *sqlx.DB) *HiringRepository {
	return &HiringRepository{db: db}
}

// AcceptResult — итог принятого оффера: созданный этап и escrow-резерв.
type AcceptResult struct {
	Offer     *models.Offer         `json:"offer"`
	Milestone *models.Milestone     `json:"milestone"`
	Escrow    *models.EscrowPayment `json:"escrow"`
	ClientID  uuid.UUID             `json:"client_id"`
}

// CreateOffer сохраняет оффер.
func (r *HiringRepository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (job_id, freelancer_id, bid_id, kind, role,
			milestone_title, milestone_description, milestone_amount, milestone_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		offer.JobID, offer.FreelancerID, offer.BidID, offer.Kind, offer.Role,
		offer.MilestoneTitle, offer.MilestoneDescription, offer.MilestoneAmount, offer.MilestoneDeadline,
	).Scan(&offer.ID, &offer.Status, &offer.CreatedAt)
	if err != nil {
		// Гонку двух одновременных офферов разводит частичный
		// уникальный индекс по pending-статусу.
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "у фрилансера уже есть необработанный оффер по этой работе")
		}
		return fmt.Errorf("hiring repository: create offer %w", err)
	}
	return nil
}

// GetOffer возвращает оффер по идентификатору.
func (r *HiringRepository) GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.GetContext(ctx, &offer, `SELECT * FROM offers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, fmt.Errorf("hiring repository: get offer %w", err)
	}
	return &offer, nil
}

// HasPendingOffer сообщает, есть ли у фрилансера необработанный оффер
// по этой работе.
func (r *HiringRepository) HasPendingOffer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM offers
			WHERE job_id = $1 AND freelancer_id = $2 AND status = $3
		)
	`, jobID, freelancerID, models.OfferStatusPending)
	if err != nil {
		return false, fmt.Errorf("hiring repository: has pending offer %w", err)
	}
	return exists, nil
}

// ListPendingForFreelancer возвращает необработанные офферы фрилансера
// вместе с названием работы и клиентом.
func (r *HiringRepository) ListPendingForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PendingOffer, error) {
	var offers []models.PendingOffer
	err := r.db.SelectContext(ctx, &offers, `
		SELECT o.*, j.title AS job_title, j.client_id AS client_id
		FROM offers o
		JOIN jobs j ON j.id = o.job_id
		WHERE o.freelancer_id = $1 AND o.status = $2
		ORDER BY o.created_at DESC
	`, freelancerID, models.OfferStatusPending)
	if err != nil {
		return nil, fmt.Errorf("hiring repository: list pending offers %w", err)
	}
	return offers, nil
}

// AcceptOffer принимает оффер от имени фрилансера. Вся цепочка
// выполняется в одной транзакции: перевод оффера в accepted, создание
// первого этапа, escrow-резерв, обновление работы и заявок, проводки
// по записям найма. Любая ошибка откатывает всё целиком.
func (r *HiringRepository) AcceptOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*AcceptResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("hiring repository: accept begin %w", err)
	}
	defer tx.Rollback()

	offer, err := r.claimOfferTx(ctx, tx, offerID, freelancerID, models.OfferStatusAccepted)
	if err != nil {
		return nil, err
	}

	// Работа блокируется на время проводки.
	var job struct {
		ClientID            uuid.UUID  `db:"client_id"`
		Status              string     `db:"status"`
		GroupConversationID *uuid.UUID `db:"group_conversation_id"`
	}
	err = tx.GetContext(ctx, &job,
		`SELECT client_id, status, group_conversation_id FROM jobs WHERE id = $1 FOR UPDATE`,
		offer.JobID)
	if err != nil {
		return nil, fmt.Errorf("hiring repository: lock job %w", err)
	}

	result := &AcceptResult{Offer: offer, ClientID: job.ClientID}

	switch offer.Kind {
	case models.OfferKindTeam:
		err = r.acceptTeamTx(ctx, tx, offer, job.ClientID, job.GroupConversationID, result)
	default:
		err = r.acceptIndividualTx(ctx, tx, offer, job.ClientID, result)
	}
	if err != nil {
		return nil, err
	}

	if offer.BidID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE bids SET status = $2, updated_at = NOW() WHERE id = $1
		`, *offer.BidID, models.BidStatusAccepted); err != nil {
			return nil, fmt.Errorf("hiring repository: accept bid %w", err)
		}
	}

	return result, tx.Commit()
}

// acceptIndividualTx проводит индивидуальный найм: работа переходит в
// in-progress, остальные заявки отклоняются.
func (r *HiringRepository) acceptIndividualTx(ctx context.Context, tx *sqlx.Tx, offer *models.Offer, clientID uuid.UUID, result *AcceptResult) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, hired_freelancer_id = $3, hired_bid_id = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, offer.JobID, models.JobStatusInProgress, offer.FreelancerID, offer.BidID, models.JobStatusOpen)
	if err != nil {
		return fmt.Errorf("hiring repository: hire on job %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.ErrCodeConflict, "работа уже не открыта для найма")
	}

	milestone, escrow, err := createFirstMilestoneTx(ctx, tx, offer, clientID, nil)
	if err != nil {
		return err
	}
	result.Milestone, result.Escrow = milestone, escrow

	if err := recordNewMilestoneTx(ctx, tx, milestone, clientID, "Individual Hire"); err != nil {
		return err
	}

	var rejectBid uuid.UUID
	if offer.BidID != nil {
		rejectBid = *offer.BidID
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE bids SET status = $2, updated_at = NOW()
		WHERE job_id = $1 AND id <> $3 AND status = $4
	`, offer.JobID, models.BidStatusRejected, rejectBid, models.BidStatusPending); err != nil {
		return fmt.Errorf("hiring repository: reject other bids %w", err)
	}

	return nil
}

// acceptTeamTx проводит командный найм: роль закрывается, фрилансер
// становится участником команды и попадает в групповой чат; работа
// переходит в in-progress только когда закрыта последняя роль.
func (r *HiringRepository) acceptTeamTx(ctx context.Context, tx *sqlx.Tx, offer *models.Offer, clientID uuid.UUID, groupConversationID *uuid.UUID, result *AcceptResult) error {
	if offer.Role == nil {
		return apperror.New(apperror.ErrCodeInternal, "командный оффер без роли")
	}

	var roleSkills pq.StringArray
	err := tx.QueryRowxContext(ctx, `
		UPDATE crowdsourcing_roles SET status = $3
		WHERE job_id = $1 AND title = $2 AND status = $4
		RETURNING skills
	`, offer.JobID, *offer.Role, models.RoleStatusFilled, models.RoleStatusOpen).Scan(&roleSkills)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.ErrCodeConflict, "роль уже занята или не существует")
		}
		return fmt.Errorf("hiring repository: fill role %w", err)
	}

	var teamMemberID uuid.UUID
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO team_members (job_id, freelancer_id, role, skills)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, offer.JobID, offer.FreelancerID, *offer.Role, roleSkills).Scan(&teamMemberID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "фрилансер уже в команде этой работы")
		}
		return fmt.Errorf("hiring repository: add team member %w", err)
	}

	milestone, escrow, err := createFirstMilestoneTx(ctx, tx, offer, clientID, &teamMemberID)
	if err != nil {
		return err
	}
	result.Milestone, result.Escrow = milestone, escrow

	if err := recordNewMilestoneTx(ctx, tx, milestone, clientID, *offer.Role); err != nil {
		return err
	}

	var openRoles int
	err = tx.GetContext(ctx, &openRoles, `
		SELECT COUNT(*) FROM crowdsourcing_roles WHERE job_id = $1 AND status = $2
	`, offer.JobID, models.RoleStatusOpen)
	if err != nil {
		return fmt.Errorf("hiring repository: count open roles %w", err)
	}
	if openRoles == 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3
		`, offer.JobID, models.JobStatusInProgress, models.JobStatusOpen); err != nil {
			return fmt.Errorf("hiring repository: start job %w", err)
		}
	}

	if groupConversationID != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, *groupConversationID, offer.FreelancerID); err != nil {
			return fmt.Errorf("hiring repository: join group conversation %w", err)
		}
	}

	return nil
}

// RejectOffer отклоняет оффер от имени фрилансера.
func (r *HiringRepository) RejectOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*models.Offer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("hiring repository: reject begin %w", err)
	}
	defer tx.Rollback()

	offer, err := r.claimOfferTx(ctx, tx, offerID, freelancerID, models.OfferStatusRejected)
	if err != nil {
		return nil, err
	}

	return offer, tx.Commit()
}

// claimOfferTx атомарно переводит pending-оффер адресата в терминальный
// статус. Проигравший гонку или чужой запрос получает Conflict,
// несуществующий оффер NotFound.
func (r *HiringRepository) claimOfferTx(ctx context.Context, tx *sqlx.Tx, offerID, freelancerID uuid.UUID, status string) (*models.Offer, error) {
	var offer models.Offer
	err := tx.QueryRowxContext(ctx, `
		UPDATE offers SET status = $3, responded_at = NOW()
		WHERE id = $1 AND freelancer_id = $2 AND status = $4
		RETURNING *
	`, offerID, freelancerID, status, models.OfferStatusPending).StructScan(&offer)
	if err == nil {
		return &offer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hiring repository: claim offer %w", err)
	}

	var existing models.Offer
	getErr := tx.GetContext(ctx, &existing, `SELECT * FROM offers WHERE id = $1`, offerID)
	if getErr != nil {
		if errors.Is(getErr, sql.ErrNoRows) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, fmt.Errorf("hiring repository: claim offer %w", getErr)
	}
	if existing.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	return nil, apperror.New(apperror.ErrCodeConflict, "оффер уже обработан")
}

// createFirstMilestoneTx создаёт первый этап из шаблона оффера и
// escrow-резерв под него. Ошибка резервирования средств трактуется как
// отказ платёжной подсистемы и откатывает весь найм.
func createFirstMilestoneTx(ctx context.Context, tx *sqlx.Tx, offer *models.Offer, clientID uuid.UUID, teamMemberID *uuid.UUID) (*models.Milestone, *models.EscrowPayment, error) {
	milestone := &models.Milestone{
		JobID:        offer.JobID,
		TeamMemberID: teamMemberID,
		FreelancerID: offer.FreelancerID,
		Title:        offer.MilestoneTitle,
		Description:  offer.MilestoneDescription,
		Amount:       offer.MilestoneAmount,
		Deadline:     offer.MilestoneDeadline,
	}
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO milestones (job_id, team_member_id, freelancer_id, title, description, amount, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at
	`, milestone.JobID, milestone.TeamMemberID, milestone.FreelancerID,
		milestone.Title, milestone.Description, milestone.Amount, milestone.Deadline,
	).Scan(&milestone.ID, &milestone.Status, &milestone.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("hiring repository: create milestone %w", err)
	}

	escrow, err := insertEscrowTx(ctx, tx, milestone, clientID)
	if err != nil {
		return nil, nil, err
	}

	return milestone, escrow, nil
}
