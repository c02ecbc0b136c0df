package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, skills)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role, pq.Array(user.Skills),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
		}
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}
	return &user, nil
}

// UpdateProfile обновляет публичные поля профиля.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, skills = $3, bio = $4, location = $5, avatar = $6, hourly_rate = $7, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, pq.Array(user.Skills), user.Bio, user.Location, user.Avatar, user.HourlyRate,
	)
	if err != nil {
		return fmt.Errorf("user repository: update profile %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

// CreateSession сохраняет refresh сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IP, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// GetSessionByToken возвращает сессию по refresh токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// GetBalance возвращает корзины выплат фрилансера, создавая запись при первом обращении.
func (r *UserRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.FreelancerBalance, error) {
	var balance models.FreelancerBalance
	query := `
		INSERT INTO freelancer_balances (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, in_progress, pending, available, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: get balance %w", err)
	}
	return &balance, nil
}

// ListHires возвращает записи о наймах пользователя на заданной стороне.
func (r *UserRepository) ListHires(ctx context.Context, userID uuid.UUID, side string) ([]models.Hire, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, counterparty_id, job_id, side, role,
		       total_budget, earned, total_paid, pending_payment,
		       active_milestones, approved_milestones, created_at
		FROM hires
		WHERE user_id = $1 AND side = $2
		ORDER BY created_at DESC
	`, userID, side)
	if err != nil {
		return nil, fmt.Errorf("user repository: list hires %w", err)
	}
	defer rows.Close()

	var hires []models.Hire
	for rows.Next() {
		hire, err := scanHire(rows)
		if err != nil {
			return nil, fmt.Errorf("user repository: scan hire %w", err)
		}
		hires = append(hires, *hire)
	}
	return hires, rows.Err()
}

// GetHire возвращает запись о найме по работе и контрагенту.
func (r *UserRepository) GetHire(ctx context.Context, userID, jobID, counterpartyID uuid.UUID, side string) (*models.Hire, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, counterparty_id, job_id, side, role,
		       total_budget, earned, total_paid, pending_payment,
		       active_milestones, approved_milestones, created_at
		FROM hires
		WHERE user_id = $1 AND job_id = $2 AND counterparty_id = $3 AND side = $4
	`, userID, jobID, counterpartyID, side)
	if err != nil {
		return nil, fmt.Errorf("user repository: get hire %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, apperror.New(apperror.ErrCodeNotFound, "запись о найме не найдена")
	}
	hire, err := scanHire(rows)
	if err != nil {
		return nil, fmt.Errorf("user repository: scan hire %w", err)
	}
	return hire, nil
}

// scanHire читает одну строку hires; массивы UUID разбираются через pq.Array.
func scanHire(rows *sql.Rows) (*models.Hire, error) {
	var hire models.Hire
	var active, approved pq.StringArray
	err := rows.Scan(
		&hire.ID, &hire.UserID, &hire.CounterpartyID, &hire.JobID, &hire.Side, &hire.Role,
		&hire.TotalBudget, &hire.Earned, &hire.TotalPaid, &hire.PendingPayment,
		&active, &approved, &hire.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if hire.ActiveMilestones, err = parseUUIDs(active); err != nil {
		return nil, err
	}
	if hire.ApprovedMilestones, err = parseUUIDs(approved); err != nil {
		return nil, err
	}
	return &hire, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// isUniqueViolation распознаёт нарушение уникального ограничения PostgreSQL.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
