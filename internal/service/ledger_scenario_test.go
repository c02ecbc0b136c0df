package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
)

// fakeLedger — хранилище в памяти, проводящее денежные операции с той
// же семантикой, что и слой репозиториев: escrow-резерв создаётся до
// любых изменений состояния, корзины выплат и записи найма обеих
// сторон двигаются парой на каждую проводку. На нём сервисы гоняются
// сквозными сценариями без базы.
type fakeLedger struct {
	jobs       map[uuid.UUID]*models.Job
	roles      map[uuid.UUID][]*models.CrowdsourcingRole
	team       map[uuid.UUID]map[uuid.UUID]uuid.UUID
	bids       map[uuid.UUID]*models.Bid
	offers     map[uuid.UUID]*models.Offer
	milestones map[uuid.UUID]*models.Milestone
	escrows    map[uuid.UUID]*models.EscrowPayment
	balances   map[uuid.UUID]*models.FreelancerBalance
	hires      map[hireKey]*models.Hire

	escrowErr error
}

type hireKey struct {
	user uuid.UUID
	job  uuid.UUID
	side string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		jobs:       map[uuid.UUID]*models.Job{},
		roles:      map[uuid.UUID][]*models.CrowdsourcingRole{},
		team:       map[uuid.UUID]map[uuid.UUID]uuid.UUID{},
		bids:       map[uuid.UUID]*models.Bid{},
		offers:     map[uuid.UUID]*models.Offer{},
		milestones: map[uuid.UUID]*models.Milestone{},
		escrows:    map[uuid.UUID]*models.EscrowPayment{},
		balances:   map[uuid.UUID]*models.FreelancerBalance{},
		hires:      map[hireKey]*models.Hire{},
	}
}

func (l *fakeLedger) addJob(clientID uuid.UUID, budget float64) *models.Job {
	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       "Интернет-магазин",
		Description: "Каталог, корзина и оплата",
		Budget:      budget,
		Status:      models.JobStatusOpen,
	}
	l.jobs[job.ID] = job
	return job
}

func (l *fakeLedger) addCrowdsourcedJob(clientID uuid.UUID, roleTitles ...string) *models.Job {
	job := l.addJob(clientID, 1500)
	job.IsCrowdsourced = true
	for _, title := range roleTitles {
		l.roles[job.ID] = append(l.roles[job.ID], &models.CrowdsourcingRole{
			ID:     uuid.New(),
			JobID:  job.ID,
			Title:  title,
			Status: models.RoleStatusOpen,
		})
	}
	return job
}

func (l *fakeLedger) balance(userID uuid.UUID) *models.FreelancerBalance {
	b, ok := l.balances[userID]
	if !ok {
		b = &models.FreelancerBalance{UserID: userID}
		l.balances[userID] = b
	}
	return b
}

func (l *fakeLedger) hire(userID, counterpartyID, jobID uuid.UUID, side, role string) *models.Hire {
	key := hireKey{user: userID, job: jobID, side: side}
	h, ok := l.hires[key]
	if !ok {
		h = &models.Hire{
			ID:             uuid.New(),
			UserID:         userID,
			CounterpartyID: counterpartyID,
			JobID:          jobID,
			Side:           side,
			Role:           role,
		}
		l.hires[key] = h
	}
	return h
}

func (l *fakeLedger) holdEscrow(m *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error) {
	if l.escrowErr != nil {
		return nil, apperror.Wrap(l.escrowErr, apperror.ErrCodeDependencyFailure,
			"не удалось зарезервировать средства под этап")
	}
	return &models.EscrowPayment{
		ID:           uuid.New(),
		JobID:        m.JobID,
		MilestoneID:  m.ID,
		FreelancerID: m.FreelancerID,
		ClientID:     clientID,
		Amount:       m.Amount,
		Status:       models.EscrowStatusHeld,
	}, nil
}

func (l *fakeLedger) recordNewMilestone(m *models.Milestone, clientID uuid.UUID, role string) {
	l.balance(m.FreelancerID).InProgress += m.Amount

	f := l.hire(m.FreelancerID, clientID, m.JobID, models.HireSideFreelancer, role)
	f.TotalBudget += m.Amount
	f.ActiveMilestones = append(f.ActiveMilestones, m.ID)

	c := l.hire(clientID, m.FreelancerID, m.JobID, models.HireSideClient, role)
	c.TotalBudget += m.Amount
	c.PendingPayment += m.Amount
	c.ActiveMilestones = append(c.ActiveMilestones, m.ID)
}

// assertConserved проверяет инвариант сохранения: сумма корзин
// фрилансера совпадает с суммой его этапов в любой момент.
func (l *fakeLedger) assertConserved(t *testing.T, freelancerID uuid.UUID) {
	t.Helper()
	var total float64
	for _, m := range l.milestones {
		if m.FreelancerID == freelancerID {
			total += m.Amount
		}
	}
	b := l.balance(freelancerID)
	assert.InDelta(t, total, b.InProgress+b.Pending+b.Available, 1e-9,
		"корзины выплат разошлись с суммами этапов")
}

// --- представления fakeLedger под интерфейсы сервисов ---

type fakeJobStore struct{ l *fakeLedger }

func (s fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, ok := s.l.jobs[id]
	if !ok {
		return nil, apperror.ErrJobNotFound
	}
	return job, nil
}

func (s fakeJobStore) ListRoles(ctx context.Context, jobID uuid.UUID) ([]models.CrowdsourcingRole, error) {
	var out []models.CrowdsourcingRole
	for _, r := range s.l.roles[jobID] {
		out = append(out, *r)
	}
	return out, nil
}

type fakeBidStore struct{ l *fakeLedger }

func (s fakeBidStore) Create(ctx context.Context, bid *models.Bid) error {
	for _, b := range s.l.bids {
		if b.JobID == bid.JobID && b.FreelancerID == bid.FreelancerID {
			return apperror.New(apperror.ErrCodeConflict, "заявка на эту работу уже подана")
		}
	}
	bid.ID = uuid.New()
	bid.Status = models.BidStatusPending
	s.l.bids[bid.ID] = bid
	s.l.jobs[bid.JobID].BidCount++
	return nil
}

func (s fakeBidStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, ok := s.l.bids[id]
	if !ok {
		return nil, apperror.ErrBidNotFound
	}
	return bid, nil
}

func (s fakeBidStore) GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.Bid, error) {
	for _, b := range s.l.bids {
		if b.JobID == jobID && b.FreelancerID == freelancerID {
			return b, nil
		}
	}
	return nil, apperror.ErrBidNotFound
}

func (s fakeBidStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range s.l.bids {
		if b.JobID == jobID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s fakeBidStore) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range s.l.bids {
		if b.FreelancerID == freelancerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s fakeBidStore) Update(ctx context.Context, bid *models.Bid) error {
	s.l.bids[bid.ID] = bid
	return nil
}

func (s fakeBidStore) Withdraw(ctx context.Context, bidID uuid.UUID) error {
	s.l.bids[bidID].Status = models.BidStatusWithdrawn
	return nil
}

func (s fakeBidStore) SetFeedback(ctx context.Context, bidID uuid.UUID, feedback string) error {
	s.l.bids[bidID].ClientFeedback = &feedback
	return nil
}

func (s fakeBidStore) AddAttachment(ctx context.Context, att *models.BidAttachment) error {
	return nil
}

func (s fakeBidStore) ListAttachments(ctx context.Context, bidID uuid.UUID) ([]models.BidAttachment, error) {
	return nil, nil
}

type fakeHiringStore struct{ l *fakeLedger }

func (s fakeHiringStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	for _, o := range s.l.offers {
		if o.JobID == offer.JobID && o.FreelancerID == offer.FreelancerID && o.Status == models.OfferStatusPending {
			return apperror.New(apperror.ErrCodeConflict, "у фрилансера уже есть необработанный оффер по этой работе")
		}
	}
	offer.ID = uuid.New()
	offer.Status = models.OfferStatusPending
	s.l.offers[offer.ID] = offer
	return nil
}

func (s fakeHiringStore) GetOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, ok := s.l.offers[id]
	if !ok {
		return nil, apperror.ErrOfferNotFound
	}
	return offer, nil
}

func (s fakeHiringStore) HasPendingOffer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	for _, o := range s.l.offers {
		if o.JobID == jobID && o.FreelancerID == freelancerID && o.Status == models.OfferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s fakeHiringStore) ListPendingForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.PendingOffer, error) {
	var out []models.PendingOffer
	for _, o := range s.l.offers {
		if o.FreelancerID == freelancerID && o.Status == models.OfferStatusPending {
			out = append(out, models.PendingOffer{Offer: *o})
		}
	}
	return out, nil
}

func (s fakeHiringStore) AcceptOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*repository.AcceptResult, error) {
	l := s.l
	offer, ok := l.offers[offerID]
	if !ok {
		return nil, apperror.ErrOfferNotFound
	}
	if offer.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != models.OfferStatusPending {
		return nil, apperror.New(apperror.ErrCodeConflict, "оффер уже обработан")
	}
	job := l.jobs[offer.JobID]

	var role *models.CrowdsourcingRole
	if offer.Kind == models.OfferKindTeam {
		for _, r := range l.roles[job.ID] {
			if offer.Role != nil && r.Title == *offer.Role && r.Status == models.RoleStatusOpen {
				role = r
				break
			}
		}
		if role == nil {
			return nil, apperror.New(apperror.ErrCodeConflict, "роль уже занята или не существует")
		}
	} else if job.Status != models.JobStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "работа уже не открыта для найма")
	}

	milestone := &models.Milestone{
		ID:           uuid.New(),
		JobID:        offer.JobID,
		FreelancerID: offer.FreelancerID,
		Title:        offer.MilestoneTitle,
		Description:  offer.MilestoneDescription,
		Amount:       offer.MilestoneAmount,
		Deadline:     offer.MilestoneDeadline,
		Status:       models.MilestoneStatusInProgress,
	}

	// Резерв средств идёт первым: его отказ не должен тронуть ни
	// оффер, ни работу, ни записи найма.
	escrow, err := l.holdEscrow(milestone, job.ClientID)
	if err != nil {
		return nil, err
	}

	offer.Status = models.OfferStatusAccepted
	roleName := "Individual Hire"
	if role != nil {
		role.Status = models.RoleStatusFilled
		roleName = role.Title
		memberID := uuid.New()
		if l.team[job.ID] == nil {
			l.team[job.ID] = map[uuid.UUID]uuid.UUID{}
		}
		l.team[job.ID][offer.FreelancerID] = memberID
		milestone.TeamMemberID = &memberID

		open := 0
		for _, r := range l.roles[job.ID] {
			if r.Status == models.RoleStatusOpen {
				open++
			}
		}
		if open == 0 {
			job.Status = models.JobStatusInProgress
		}
	} else {
		job.Status = models.JobStatusInProgress
		job.HiredFreelancerID = &offer.FreelancerID
	}

	l.milestones[milestone.ID] = milestone
	l.escrows[milestone.ID] = escrow
	l.recordNewMilestone(milestone, job.ClientID, roleName)

	return &repository.AcceptResult{
		Offer:     offer,
		Milestone: milestone,
		Escrow:    escrow,
		ClientID:  job.ClientID,
	}, nil
}

func (s fakeHiringStore) RejectOffer(ctx context.Context, offerID, freelancerID uuid.UUID) (*models.Offer, error) {
	offer, ok := s.l.offers[offerID]
	if !ok {
		return nil, apperror.ErrOfferNotFound
	}
	if offer.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != models.OfferStatusPending {
		return nil, apperror.New(apperror.ErrCodeConflict, "оффер уже обработан")
	}
	offer.Status = models.OfferStatusRejected
	return offer, nil
}

type fakeMilestoneStore struct{ l *fakeLedger }

func (s fakeMilestoneStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	m, ok := s.l.milestones[id]
	if !ok {
		return nil, apperror.ErrMilestoneNotFound
	}
	return m, nil
}

func (s fakeMilestoneStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Milestone, error) {
	var out []models.Milestone
	for _, m := range s.l.milestones {
		if m.JobID == jobID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s fakeMilestoneStore) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Milestone, error) {
	var out []models.Milestone
	for _, m := range s.l.milestones {
		if m.FreelancerID == freelancerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s fakeMilestoneStore) ResolveTrack(ctx context.Context, jobID, freelancerID uuid.UUID) (*models.MilestoneTrack, error) {
	job, ok := s.l.jobs[jobID]
	if !ok {
		return nil, apperror.ErrJobNotFound
	}
	if !job.IsCrowdsourced {
		if job.HiredFreelancerID == nil || *job.HiredFreelancerID != freelancerID {
			return nil, apperror.New(apperror.ErrCodeNotFound, "фрилансер не нанят на эту работу")
		}
		return &models.MilestoneTrack{FreelancerID: freelancerID}, nil
	}
	memberID, ok := s.l.team[jobID][freelancerID]
	if !ok {
		return nil, apperror.New(apperror.ErrCodeNotFound, "фрилансер не состоит в команде этой работы")
	}
	return &models.MilestoneTrack{FreelancerID: freelancerID, TeamMemberID: &memberID}, nil
}

func (s fakeMilestoneStore) Add(ctx context.Context, m *models.Milestone, clientID uuid.UUID) (*models.EscrowPayment, error) {
	l := s.l
	job, ok := l.jobs[m.JobID]
	if !ok {
		return nil, apperror.ErrJobNotFound
	}
	if job.Status != models.JobStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "этап можно добавить только к выполняемой работе")
	}

	m.ID = uuid.New()
	m.Status = models.MilestoneStatusInProgress

	escrow, err := l.holdEscrow(m, clientID)
	if err != nil {
		return nil, err
	}

	l.milestones[m.ID] = m
	l.escrows[m.ID] = escrow
	l.recordNewMilestone(m, clientID, "Individual Hire")
	return escrow, nil
}

func (s fakeMilestoneStore) Approve(ctx context.Context, milestoneID, clientID uuid.UUID, holdPeriod time.Duration) (*models.Milestone, *models.EscrowPayment, error) {
	l := s.l
	m, ok := l.milestones[milestoneID]
	if !ok {
		return nil, nil, apperror.ErrMilestoneNotFound
	}
	if m.Status != models.MilestoneStatusInProgress {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "этап уже одобрен")
	}

	now := time.Now()
	m.Status = models.MilestoneStatusApproved
	m.ApprovalDate = &now

	escrow := l.escrows[milestoneID]
	availableAt := now.Add(holdPeriod)
	escrow.Status = models.EscrowStatusClearing
	escrow.AvailableAt = &availableAt

	b := l.balance(m.FreelancerID)
	b.InProgress -= m.Amount
	if b.InProgress < 0 {
		b.InProgress = 0
	}
	b.Pending += m.Amount

	f := l.hires[hireKey{user: m.FreelancerID, job: m.JobID, side: models.HireSideFreelancer}]
	f.ActiveMilestones = removeID(f.ActiveMilestones, m.ID)
	f.ApprovedMilestones = append(f.ApprovedMilestones, m.ID)
	f.Earned += m.Amount

	c := l.hires[hireKey{user: clientID, job: m.JobID, side: models.HireSideClient}]
	c.ActiveMilestones = removeID(c.ActiveMilestones, m.ID)
	c.ApprovedMilestones = append(c.ApprovedMilestones, m.ID)
	c.TotalPaid += m.Amount
	c.PendingPayment -= m.Amount
	if c.PendingPayment < 0 {
		c.PendingPayment = 0
	}

	l.jobs[m.JobID].Paid += m.Amount
	return m, escrow, nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type fakePaymentStore struct{ l *fakeLedger }

func (s fakePaymentStore) GetByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.EscrowPayment, error) {
	escrow, ok := s.l.escrows[milestoneID]
	if !ok {
		return nil, apperror.ErrEscrowNotFound
	}
	return escrow, nil
}

func (s fakePaymentStore) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.EscrowPayment, error) {
	var out []models.EscrowPayment
	for _, e := range s.l.escrows {
		if e.FreelancerID == freelancerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s fakePaymentStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.EscrowPayment, error) {
	var out []models.EscrowPayment
	for _, e := range s.l.escrows {
		if e.JobID == jobID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s fakePaymentStore) ReleaseDuePayments(ctx context.Context, now time.Time) ([]models.EscrowPayment, error) {
	var released []models.EscrowPayment
	for _, e := range s.l.escrows {
		if e.Status != models.EscrowStatusClearing || e.AvailableAt == nil || e.AvailableAt.After(now) {
			continue
		}
		e.Status = models.EscrowStatusReleased
		e.ReleasedAt = &now

		b := s.l.balance(e.FreelancerID)
		b.Pending -= e.Amount
		if b.Pending < 0 {
			b.Pending = 0
		}
		b.Available += e.Amount
		released = append(released, *e)
	}
	return released, nil
}

func (s fakePaymentStore) GetBalance(ctx context.Context, userID uuid.UUID) (*models.FreelancerBalance, error) {
	return s.l.balance(userID), nil
}

func (s fakePaymentStore) ListHires(ctx context.Context, userID uuid.UUID, side string) ([]models.Hire, error) {
	var out []models.Hire
	for key, h := range s.l.hires {
		if key.user == userID && key.side == side {
			out = append(out, *h)
		}
	}
	return out, nil
}

const scenarioHoldPeriod = 72 * time.Hour

func newLedgerServices(l *fakeLedger) (*BidService, *HiringService, *MilestoneService, *PaymentService) {
	jobs := fakeJobStore{l}
	bids := fakeBidStore{l}
	return NewBidService(bids, jobs, NopNotifier{}),
		NewHiringService(fakeHiringStore{l}, bids, jobs, NopNotifier{}),
		NewMilestoneService(fakeMilestoneStore{l}, jobs, NopNotifier{}, scenarioHoldPeriod),
		NewPaymentService(fakePaymentStore{l}, fakePaymentStore{l}, jobs, NopNotifier{})
}

func scenarioOffer(freelancerID uuid.UUID, amount float64) OfferInput {
	return OfferInput{
		FreelancerID:         freelancerID,
		MilestoneTitle:       "Первый этап",
		MilestoneDescription: "Каркас приложения и базовые страницы",
		MilestoneAmount:      amount,
		MilestoneDeadline:    time.Now().Add(14 * 24 * time.Hour),
	}
}

// Сквозной сценарий: заявка → оффер → принятие → одобрение → истечение
// периода удержания → средства доступны. Инвариант сохранения корзин
// проверяется после каждого перехода.
func TestLedgerScenario_EndToEndPayout(t *testing.T) {
	l := newFakeLedger()
	bids, hiring, milestones, payments := newLedgerServices(l)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	job := l.addJob(clientID, 500)

	in := validBidInput()
	in.Budget = 500
	_, err := bids.SubmitBid(ctx, job.ID, freelancerID, in)
	require.NoError(t, err)

	_, err = bids.SubmitBid(ctx, job.ID, freelancerID, in)
	assert.True(t, apperror.IsConflict(err), "повторная заявка той же пары должна отклоняться")

	offer, err := hiring.SendOffer(ctx, job.ID, clientID, scenarioOffer(freelancerID, 500))
	require.NoError(t, err)

	result, err := hiring.AcceptOffer(ctx, offer.ID, freelancerID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, job.Status)
	assert.Equal(t, models.MilestoneStatusInProgress, result.Milestone.Status)
	assert.Equal(t, models.EscrowStatusHeld, result.Escrow.Status)
	assert.Equal(t, 500.0, result.Escrow.Amount)
	assert.Equal(t, 500.0, l.balance(freelancerID).InProgress)
	l.assertConserved(t, freelancerID)

	approved, escrow, err := milestones.ApproveMilestone(ctx, result.Milestone.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusApproved, approved.Status)
	assert.Equal(t, models.EscrowStatusClearing, escrow.Status)
	require.NotNil(t, escrow.AvailableAt)
	require.NotNil(t, approved.ApprovalDate)
	assert.WithinDuration(t, approved.ApprovalDate.Add(scenarioHoldPeriod), *escrow.AvailableAt, time.Second)
	assert.Equal(t, 0.0, l.balance(freelancerID).InProgress)
	assert.Equal(t, 500.0, l.balance(freelancerID).Pending)
	hire := l.hires[hireKey{user: freelancerID, job: job.ID, side: models.HireSideFreelancer}]
	assert.Equal(t, 500.0, hire.Earned)
	l.assertConserved(t, freelancerID)

	// Повторное одобрение отклоняется и не двигает итоги.
	_, _, err = milestones.ApproveMilestone(ctx, result.Milestone.ID, clientID)
	assert.True(t, apperror.IsInvalidState(err))
	assert.Equal(t, 500.0, l.balance(freelancerID).Pending)
	assert.Equal(t, 500.0, hire.Earned)
	l.assertConserved(t, freelancerID)

	count, err := payments.ReleaseDuePayments(ctx, escrow.AvailableAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0.0, l.balance(freelancerID).Pending)
	assert.Equal(t, 500.0, l.balance(freelancerID).Available)
	assert.Equal(t, models.EscrowStatusReleased, l.escrows[result.Milestone.ID].Status)
	l.assertConserved(t, freelancerID)

	// Свип идемпотентен: повторный запуск ничего не выпускает.
	count, err = payments.ReleaseDuePayments(ctx, escrow.AvailableAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
	l.assertConserved(t, freelancerID)
}

// Каждый следующий этап наращивает итоги записей найма обеих сторон,
// а не только первый.
func TestLedgerScenario_SecondMilestoneGrowsHireTotals(t *testing.T) {
	l := newFakeLedger()
	_, hiring, milestones, _ := newLedgerServices(l)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	job := l.addJob(clientID, 1000)

	offer, err := hiring.SendOffer(ctx, job.ID, clientID, scenarioOffer(freelancerID, 500))
	require.NoError(t, err)
	_, err = hiring.AcceptOffer(ctx, offer.ID, freelancerID)
	require.NoError(t, err)

	_, _, err = milestones.AddMilestone(ctx, job.ID, clientID, MilestoneInput{
		FreelancerID: freelancerID,
		Title:        "Второй этап",
		Description:  "Оплата и доставка",
		Amount:       200,
		Deadline:     time.Now().Add(21 * 24 * time.Hour),
	})
	require.NoError(t, err)

	f := l.hires[hireKey{user: freelancerID, job: job.ID, side: models.HireSideFreelancer}]
	c := l.hires[hireKey{user: clientID, job: job.ID, side: models.HireSideClient}]
	assert.Equal(t, 700.0, f.TotalBudget)
	assert.Equal(t, 700.0, c.TotalBudget)
	assert.Equal(t, 700.0, c.PendingPayment)
	assert.Len(t, f.ActiveMilestones, 2)
	assert.Equal(t, 700.0, l.balance(freelancerID).InProgress)
	l.assertConserved(t, freelancerID)
}

// Отказ платёжной подсистемы при принятии оффера не оставляет
// частичных изменений: оффер, работа и записи найма нетронуты.
func TestLedgerScenario_EscrowFailureLeavesNoPartialCommit(t *testing.T) {
	l := newFakeLedger()
	_, hiring, _, _ := newLedgerServices(l)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	job := l.addJob(clientID, 500)

	offer, err := hiring.SendOffer(ctx, job.ID, clientID, scenarioOffer(freelancerID, 500))
	require.NoError(t, err)

	l.escrowErr = errors.New("платёжный шлюз недоступен")
	_, err = hiring.AcceptOffer(ctx, offer.ID, freelancerID)
	assert.True(t, apperror.IsDependencyFailure(err))

	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Equal(t, models.OfferStatusPending, l.offers[offer.ID].Status)
	assert.Empty(t, l.milestones)
	assert.Empty(t, l.hires)
	assert.Equal(t, 0.0, l.balance(freelancerID).InProgress)
}

// Краудсорсинговая работа стартует ровно на последней закрытой роли.
func TestLedgerScenario_CrowdsourcedStartsOnLastRole(t *testing.T) {
	l := newFakeLedger()
	_, hiring, _, _ := newLedgerServices(l)
	ctx := context.Background()

	clientID := uuid.New()
	job := l.addCrowdsourcedJob(clientID, "Дизайнер", "Верстальщик", "Бэкендер")

	for i, roleTitle := range []string{"Дизайнер", "Верстальщик", "Бэкендер"} {
		freelancerID := uuid.New()
		in := scenarioOffer(freelancerID, 300)
		in.Role = roleTitle

		offer, err := hiring.SendOffer(ctx, job.ID, clientID, in)
		require.NoError(t, err)
		result, err := hiring.AcceptOffer(ctx, offer.ID, freelancerID)
		require.NoError(t, err)
		require.NotNil(t, result.Milestone.TeamMemberID)

		if i < 2 {
			assert.Equal(t, models.JobStatusOpen, job.Status, "работа стартовала до закрытия последней роли")
		} else {
			assert.Equal(t, models.JobStatusInProgress, job.Status)
		}
		l.assertConserved(t, freelancerID)
	}
}
