package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	committed  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func txPool(tx *mockTx) *mockTxBeginner {
	return &mockTxBeginner{beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil }}
}

// mockAccessRepository grants access to every location in allowed.
type mockAccessRepository struct {
	allowed map[string]bool
	hasErr  error
	grantFn func(ctx context.Context, tx database.TxQuerier, userID, locationID string) error
}

func allow(locationIDs ...string) *mockAccessRepository {
	m := &mockAccessRepository{allowed: map[string]bool{}}
	for _, id := range locationIDs {
		m.allowed[id] = true
	}
	return m
}

func (m *mockAccessRepository) HasAccess(ctx context.Context, userID, locationID string) (bool, error) {
	if m.hasErr != nil {
		return false, m.hasErr
	}
	return m.allowed[locationID], nil
}

// LocationIDs returns the allowed locations in sorted order.
func (m *mockAccessRepository) LocationIDs(ctx context.Context, userID string) ([]string, error) {
	if m.hasErr != nil {
		return nil, m.hasErr
	}
	return slices.Sorted(maps.Keys(m.allowed)), nil
}

func (m *mockAccessRepository) Grant(ctx context.Context, tx database.TxQuerier, userID, locationID string) error {
	if m.grantFn != nil {
		return m.grantFn(ctx, tx, userID, locationID)
	}
	return nil
}

// mockLocationRepository is a mock implementation of LocationRepositoryInterface.
type mockLocationRepository struct {
	insertFn      func(ctx context.Context, tx database.TxQuerier, loc *model.Location) error
	getByIDFn     func(ctx context.Context, id string) (*model.Location, error)
	listForUserFn func(ctx context.Context, userID string) ([]model.Location, error)
}

func (m *mockLocationRepository) Insert(ctx context.Context, tx database.TxQuerier, loc *model.Location) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, loc)
	}
	return nil
}

func (m *mockLocationRepository) GetByID(ctx context.Context, id string) (*model.Location, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockLocationRepository) ListForUser(ctx context.Context, userID string) ([]model.Location, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return []model.Location{}, nil
}

func activeLocation(id string) *mockLocationRepository {
	return &mockLocationRepository{
		getByIDFn: func(ctx context.Context, lookup string) (*model.Location, error) {
			if lookup != id {
				return nil, nil
			}
			return &model.Location{ID: id, Name: "Taco Town", IsActive: true}, nil
		},
	}
}

// mockCustomerRepository is a mock implementation of CustomerRepositoryInterface.
type mockCustomerRepository struct {
	upsertByPhoneFn func(ctx context.Context, tx database.TxQuerier, c *model.Customer) error
	updateFn        func(ctx context.Context, c *model.Customer) error
}

func (m *mockCustomerRepository) UpsertByPhone(ctx context.Context, tx database.TxQuerier, c *model.Customer) error {
	if m.upsertByPhoneFn != nil {
		return m.upsertByPhoneFn(ctx, tx, c)
	}
	return nil
}

func (m *mockCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, c)
	}
	return nil
}

// mockEnrollmentRepository is a mock implementation of EnrollmentRepositoryInterface.
type mockEnrollmentRepository struct {
	upsertFn          func(ctx context.Context, tx database.TxQuerier, id, customerID, locationID string) (*model.Enrollment, bool, error)
	getByIDFn         func(ctx context.Context, id string) (*model.Enrollment, error)
	getForUpdateFn    func(ctx context.Context, tx database.TxQuerier, id string) (*model.Enrollment, error)
	addPointsFn       func(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error)
	debitPointsFn     func(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error)
	setContactIDFn    func(ctx context.Context, id, contactID string) error
	listClientsFn     func(ctx context.Context, locationID, search string) ([]model.Client, error)
	getClientFn       func(ctx context.Context, enrollmentID string) (*model.Client, error)
	listForCustomerFn func(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error)
	deleteFn          func(ctx context.Context, id string) error
}

func (m *mockEnrollmentRepository) Upsert(ctx context.Context, tx database.TxQuerier, id, customerID, locationID string) (*model.Enrollment, bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, tx, id, customerID, locationID)
	}
	return &model.Enrollment{ID: id, CustomerID: customerID, LocationID: locationID}, true, nil
}

func (m *mockEnrollmentRepository) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockEnrollmentRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Enrollment, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrNotFound
}

func (m *mockEnrollmentRepository) AddPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error) {
	if m.addPointsFn != nil {
		return m.addPointsFn(ctx, tx, id, points)
	}
	return points, nil
}

func (m *mockEnrollmentRepository) DebitPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error) {
	if m.debitPointsFn != nil {
		return m.debitPointsFn(ctx, tx, id, points)
	}
	return 0, nil
}

func (m *mockEnrollmentRepository) SetContactID(ctx context.Context, id, contactID string) error {
	if m.setContactIDFn != nil {
		return m.setContactIDFn(ctx, id, contactID)
	}
	return nil
}

func (m *mockEnrollmentRepository) ListClients(ctx context.Context, locationID, search string) ([]model.Client, error) {
	if m.listClientsFn != nil {
		return m.listClientsFn(ctx, locationID, search)
	}
	return []model.Client{}, nil
}

func (m *mockEnrollmentRepository) GetClient(ctx context.Context, enrollmentID string) (*model.Client, error) {
	if m.getClientFn != nil {
		return m.getClientFn(ctx, enrollmentID)
	}
	return nil, nil
}

func (m *mockEnrollmentRepository) ListForCustomer(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error) {
	if m.listForCustomerFn != nil {
		return m.listForCustomerFn(ctx, customerID)
	}
	return []model.CustomerEnrollment{}, nil
}

func (m *mockEnrollmentRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockPurchaseRepository records inserted purchase logs.
type mockPurchaseRepository struct {
	insertFn func(ctx context.Context, tx database.TxQuerier, p *model.PurchaseLog) error
	inserted []model.PurchaseLog
}

func (m *mockPurchaseRepository) Insert(ctx context.Context, tx database.TxQuerier, p *model.PurchaseLog) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, tx, p); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, *p)
	return nil
}

func (m *mockPurchaseRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]model.PurchaseLog, error) {
	return m.inserted, nil
}

// mockRewardRepository is a mock implementation of RewardRepositoryInterface.
type mockRewardRepository struct {
	listByLocationFn   func(ctx context.Context, locationID string, enabledOnly bool) ([]model.RewardItem, error)
	getByIDFn          func(ctx context.Context, id string) (*model.RewardItem, error)
	insertFn           func(ctx context.Context, item *model.RewardItem) error
	insertSignupGiftFn func(ctx context.Context, id, locationID, name string) error
	findSignupGiftFn   func(ctx context.Context, q database.TxQuerier, locationID string) (*model.RewardItem, error)
	updateFn           func(ctx context.Context, item *model.RewardItem) error
	deleteFn           func(ctx context.Context, id string) error
}

func (m *mockRewardRepository) ListByLocation(ctx context.Context, locationID string, enabledOnly bool) ([]model.RewardItem, error) {
	if m.listByLocationFn != nil {
		return m.listByLocationFn(ctx, locationID, enabledOnly)
	}
	return []model.RewardItem{}, nil
}

func (m *mockRewardRepository) GetByID(ctx context.Context, id string) (*model.RewardItem, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRewardRepository) Insert(ctx context.Context, item *model.RewardItem) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, item)
	}
	return nil
}

func (m *mockRewardRepository) InsertSignupGiftIfMissing(ctx context.Context, id, locationID, name string) error {
	if m.insertSignupGiftFn != nil {
		return m.insertSignupGiftFn(ctx, id, locationID, name)
	}
	return nil
}

func (m *mockRewardRepository) FindSignupGift(ctx context.Context, q database.TxQuerier, locationID string) (*model.RewardItem, error) {
	if m.findSignupGiftFn != nil {
		return m.findSignupGiftFn(ctx, q, locationID)
	}
	return &model.RewardItem{ID: "gift", LocationID: locationID, Name: model.DefaultSignupGiftName, Type: model.RewardTypeSignupGift, IsEnabled: true}, nil
}

func (m *mockRewardRepository) Update(ctx context.Context, item *model.RewardItem) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, item)
	}
	return nil
}

func (m *mockRewardRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockRedemptionRepository is a mock implementation of RedemptionRepositoryInterface.
type mockRedemptionRepository struct {
	insertFn            func(ctx context.Context, intent *model.RedemptionIntent) error
	getContextByTokenFn func(ctx context.Context, token string) (*model.RedemptionContext, error)
	getForUpdateFn      func(ctx context.Context, tx database.TxQuerier, token string) (*model.RedemptionContext, error)
	markUsedFn          func(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error
}

func (m *mockRedemptionRepository) Insert(ctx context.Context, intent *model.RedemptionIntent) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, intent)
	}
	return nil
}

func (m *mockRedemptionRepository) GetContextByToken(ctx context.Context, token string) (*model.RedemptionContext, error) {
	if m.getContextByTokenFn != nil {
		return m.getContextByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockRedemptionRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, token string) (*model.RedemptionContext, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, token)
	}
	return nil, ErrInvalidOrExpired
}

func (m *mockRedemptionRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, tx, id, at)
	}
	return nil
}

// mockSyncer records every push instead of performing it.
type mockSyncer struct {
	mu         sync.Mutex
	balances   []int
	contacts   []string
	notes      []string
	created    []model.Customer
	deleted    []string
	linkResult string
	linkErr    error
}

func (m *mockSyncer) PushBalance(contactID string, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, contactID)
	m.balances = append(m.balances, balance)
}

func (m *mockSyncer) RedemptionCompleted(contactID string, balance int, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, contactID)
	m.balances = append(m.balances, balance)
	m.notes = append(m.notes, note)
}

func (m *mockSyncer) CreateContact(customer model.Customer, linked func(ctx context.Context, contactID string) error) {
	m.mu.Lock()
	m.created = append(m.created, customer)
	contactID := m.linkResult
	m.mu.Unlock()
	if contactID != "" {
		m.linkErr = linked(context.Background(), contactID)
	}
}

func (m *mockSyncer) DeleteContact(contactID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, contactID)
}

// mockNotifier records sent messages.
type mockNotifier struct {
	sendErr  error
	phones   []string
	messages []string
}

func (m *mockNotifier) Send(ctx context.Context, phoneE164, message string) error {
	m.phones = append(m.phones, phoneE164)
	m.messages = append(m.messages, message)
	return m.sendErr
}

// mockRecorder counts ledger events.
type mockRecorder struct {
	accrued  int
	redeemed int
	outcomes []string
}

func (m *mockRecorder) PointsAccrued(points int)         { m.accrued += points }
func (m *mockRecorder) PointsRedeemed(points int)        { m.redeemed += points }
func (m *mockRecorder) RedemptionOutcome(result string) { m.outcomes = append(m.outcomes, result) }

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

// mockInviteRepository is a mock implementation of InviteRepositoryInterface.
type mockInviteRepository struct {
	insertFn       func(ctx context.Context, inv *model.Invite) error
	getByCodeFn    func(ctx context.Context, code string) (*model.Invite, error)
	getForUpdateFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.Invite, error)
	markUsedFn     func(ctx context.Context, tx database.TxQuerier, id, userID string, at time.Time) error
	listOpenFn     func(ctx context.Context, locationIDs []string, now time.Time) ([]model.Invite, error)
}

func (m *mockInviteRepository) Insert(ctx context.Context, inv *model.Invite) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, inv)
	}
	return nil
}

func (m *mockInviteRepository) GetByCode(ctx context.Context, code string) (*model.Invite, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockInviteRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Invite, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, code)
	}
	return nil, ErrNotFound
}

func (m *mockInviteRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id, userID string, at time.Time) error {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, tx, id, userID, at)
	}
	return nil
}

func (m *mockInviteRepository) ListOpen(ctx context.Context, locationIDs []string, now time.Time) ([]model.Invite, error) {
	if m.listOpenFn != nil {
		return m.listOpenFn(ctx, locationIDs, now)
	}
	return []model.Invite{}, nil
}
