package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccessRepositoryInterface defines the interface for location scoping of portal users.
type AccessRepositoryInterface interface {
	HasAccess(ctx context.Context, userID, locationID string) (bool, error)
	LocationIDs(ctx context.Context, userID string) ([]string, error)
	Grant(ctx context.Context, tx database.TxQuerier, userID, locationID string) error
}

// LocationRepositoryInterface defines the interface for location data access.
type LocationRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, loc *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	ListForUser(ctx context.Context, userID string) ([]model.Location, error)
}

// CustomerRepositoryInterface defines the interface for customer data access.
type CustomerRepositoryInterface interface {
	UpsertByPhone(ctx context.Context, tx database.TxQuerier, c *model.Customer) error
	Update(ctx context.Context, c *model.Customer) error
}

// EnrollmentRepositoryInterface defines the interface for enrollment data access.
// Balance mutations are only available inside a transaction.
type EnrollmentRepositoryInterface interface {
	Upsert(ctx context.Context, tx database.TxQuerier, id, customerID, locationID string) (*model.Enrollment, bool, error)
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Enrollment, error)
	AddPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error)
	DebitPoints(ctx context.Context, tx database.TxQuerier, id string, points int) (int, error)
	SetContactID(ctx context.Context, id, contactID string) error
	ListClients(ctx context.Context, locationID, search string) ([]model.Client, error)
	GetClient(ctx context.Context, enrollmentID string) (*model.Client, error)
	ListForCustomer(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error)
	Delete(ctx context.Context, id string) error
}

// PurchaseRepositoryInterface defines the interface for the accrual history.
type PurchaseRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, p *model.PurchaseLog) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]model.PurchaseLog, error)
}

// RewardRepositoryInterface defines the interface for catalog data access.
type RewardRepositoryInterface interface {
	ListByLocation(ctx context.Context, locationID string, enabledOnly bool) ([]model.RewardItem, error)
	GetByID(ctx context.Context, id string) (*model.RewardItem, error)
	Insert(ctx context.Context, item *model.RewardItem) error
	InsertSignupGiftIfMissing(ctx context.Context, id, locationID, name string) error
	FindSignupGift(ctx context.Context, q database.TxQuerier, locationID string) (*model.RewardItem, error)
	Update(ctx context.Context, item *model.RewardItem) error
	Delete(ctx context.Context, id string) error
}

// RedemptionRepositoryInterface defines the interface for redemption intent data access.
type RedemptionRepositoryInterface interface {
	Insert(ctx context.Context, intent *model.RedemptionIntent) error
	GetContextByToken(ctx context.Context, token string) (*model.RedemptionContext, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, token string) (*model.RedemptionContext, error)
	MarkUsed(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error
}

// InviteRepositoryInterface defines the interface for staff invite data access.
type InviteRepositoryInterface interface {
	Insert(ctx context.Context, inv *model.Invite) error
	GetByCode(ctx context.Context, code string) (*model.Invite, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Invite, error)
	MarkUsed(ctx context.Context, tx database.TxQuerier, id, userID string, at time.Time) error
	ListOpen(ctx context.Context, locationIDs []string, now time.Time) ([]model.Invite, error)
}

// Syncer pushes ledger changes to the CRM after they commit.
// Every method returns immediately; failures are handled on the syncer's side.
type Syncer interface {
	PushBalance(contactID string, balance int)
	RedemptionCompleted(contactID string, balance int, note string)
	CreateContact(customer model.Customer, linked func(ctx context.Context, contactID string) error)
	DeleteContact(contactID string)
}

// Notifier delivers a text message to a customer's phone.
type Notifier interface {
	Send(ctx context.Context, phoneE164, message string) error
}

// Recorder receives ledger events for metrics.
type Recorder interface {
	PointsAccrued(points int)
	PointsRedeemed(points int)
	RedemptionOutcome(result string)
}

type nopRecorder struct{}

func (nopRecorder) PointsAccrued(int)         {}
func (nopRecorder) PointsRedeemed(int)        {}
func (nopRecorder) RedemptionOutcome(string) {}
