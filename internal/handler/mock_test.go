package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/alignperks/loyalty-portal/internal/model"
	"github.com/alignperks/loyalty-portal/internal/validator"
)

type mockLocationService struct {
	createFn    func(ctx context.Context, userID string, req *model.CreateLocationRequest) (*model.Location, error)
	listFn      func(ctx context.Context, userID string) ([]model.Location, error)
	getPublicFn func(ctx context.Context, id string) (*model.PublicLocation, error)
}

func (m *mockLocationService) Create(ctx context.Context, userID string, req *model.CreateLocationRequest) (*model.Location, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, req)
	}
	return &model.Location{ID: "loc-1", Name: req.Name, Slug: "slug"}, nil
}

func (m *mockLocationService) List(ctx context.Context, userID string) ([]model.Location, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []model.Location{}, nil
}

func (m *mockLocationService) GetPublic(ctx context.Context, id string) (*model.PublicLocation, error) {
	if m.getPublicFn != nil {
		return m.getPublicFn(ctx, id)
	}
	return &model.PublicLocation{ID: id, Name: "Taco Town"}, nil
}

type mockCatalogService struct {
	listFn   func(ctx context.Context, userID, locationID string) ([]model.RewardItem, error)
	publicFn func(ctx context.Context, locationID string) ([]model.RewardItem, error)
	createFn func(ctx context.Context, userID string, req *model.CreateRewardRequest) (*model.RewardItem, error)
	updateFn func(ctx context.Context, userID, rewardID string, req *model.UpdateRewardRequest) (*model.RewardItem, error)
	deleteFn func(ctx context.Context, userID, rewardID string) error
}

func (m *mockCatalogService) ListRewards(ctx context.Context, userID, locationID string) ([]model.RewardItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, locationID)
	}
	return []model.RewardItem{}, nil
}

func (m *mockCatalogService) PublicCatalog(ctx context.Context, locationID string) ([]model.RewardItem, error) {
	if m.publicFn != nil {
		return m.publicFn(ctx, locationID)
	}
	return []model.RewardItem{}, nil
}

func (m *mockCatalogService) CreateReward(ctx context.Context, userID string, req *model.CreateRewardRequest) (*model.RewardItem, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, req)
	}
	return &model.RewardItem{ID: "r-1", Name: req.Name, PointsRequired: req.PointsRequired}, nil
}

func (m *mockCatalogService) UpdateReward(ctx context.Context, userID, rewardID string, req *model.UpdateRewardRequest) (*model.RewardItem, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, rewardID, req)
	}
	return &model.RewardItem{ID: rewardID}, nil
}

func (m *mockCatalogService) DeleteReward(ctx context.Context, userID, rewardID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, rewardID)
	}
	return nil
}

type mockEnrollmentService struct {
	registerFn        func(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResult, error)
	createClientFn    func(ctx context.Context, userID string, req *model.CreateClientRequest) (*model.Client, error)
	listClientsFn     func(ctx context.Context, userID, locationID, search string) ([]model.Client, error)
	updateClientFn    func(ctx context.Context, userID, enrollmentID string, req *model.UpdateClientRequest) (*model.Client, error)
	unenrollFn        func(ctx context.Context, userID, enrollmentID string) error
	listForCustomerFn func(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error)
	getEnrollmentFn   func(ctx context.Context, customerID, enrollmentID string) (*model.CustomerEnrollment, error)
}

func (m *mockEnrollmentService) Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return &model.RegisterResult{EnrollmentID: "enr-1", LocationID: req.LocationID, Created: true}, nil
}

func (m *mockEnrollmentService) CreateClient(ctx context.Context, userID string, req *model.CreateClientRequest) (*model.Client, error) {
	if m.createClientFn != nil {
		return m.createClientFn(ctx, userID, req)
	}
	return &model.Client{EnrollmentID: "enr-1", LocationID: req.LocationID}, nil
}

func (m *mockEnrollmentService) ListClients(ctx context.Context, userID, locationID, search string) ([]model.Client, error) {
	if m.listClientsFn != nil {
		return m.listClientsFn(ctx, userID, locationID, search)
	}
	return []model.Client{}, nil
}

func (m *mockEnrollmentService) UpdateClient(ctx context.Context, userID, enrollmentID string, req *model.UpdateClientRequest) (*model.Client, error) {
	if m.updateClientFn != nil {
		return m.updateClientFn(ctx, userID, enrollmentID, req)
	}
	return &model.Client{EnrollmentID: enrollmentID}, nil
}

func (m *mockEnrollmentService) Unenroll(ctx context.Context, userID, enrollmentID string) error {
	if m.unenrollFn != nil {
		return m.unenrollFn(ctx, userID, enrollmentID)
	}
	return nil
}

func (m *mockEnrollmentService) ListCustomerEnrollments(ctx context.Context, customerID string) ([]model.CustomerEnrollment, error) {
	if m.listForCustomerFn != nil {
		return m.listForCustomerFn(ctx, customerID)
	}
	return []model.CustomerEnrollment{}, nil
}

func (m *mockEnrollmentService) GetEnrollment(ctx context.Context, customerID, enrollmentID string) (*model.CustomerEnrollment, error) {
	if m.getEnrollmentFn != nil {
		return m.getEnrollmentFn(ctx, customerID, enrollmentID)
	}
	return &model.CustomerEnrollment{EnrollmentID: enrollmentID}, nil
}

type mockLedgerService struct {
	addPointsFn func(ctx context.Context, userID string, req *model.AddPointsRequest) (*model.AddPointsResponse, error)
	historyFn   func(ctx context.Context, userID, enrollmentID string) ([]model.PurchaseLog, error)
}

func (m *mockLedgerService) AddPoints(ctx context.Context, userID string, req *model.AddPointsRequest) (*model.AddPointsResponse, error) {
	if m.addPointsFn != nil {
		return m.addPointsFn(ctx, userID, req)
	}
	return &model.AddPointsResponse{Success: true}, nil
}

func (m *mockLedgerService) History(ctx context.Context, userID, enrollmentID string) ([]model.PurchaseLog, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID, enrollmentID)
	}
	return []model.PurchaseLog{}, nil
}

type mockRedemptionService struct {
	requestFn  func(ctx context.Context, customerID string, req *model.RequestRedemptionRequest) (*model.RedemptionTicket, error)
	verifyFn   func(ctx context.Context, userID, token string) (*model.RedemptionPreview, error)
	completeFn func(ctx context.Context, userID, token string) (*model.RedemptionReceipt, error)
}

func (m *mockRedemptionService) Request(ctx context.Context, customerID string, req *model.RequestRedemptionRequest) (*model.RedemptionTicket, error) {
	if m.requestFn != nil {
		return m.requestFn(ctx, customerID, req)
	}
	return &model.RedemptionTicket{Token: "tok"}, nil
}

func (m *mockRedemptionService) Verify(ctx context.Context, userID, token string) (*model.RedemptionPreview, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, userID, token)
	}
	return &model.RedemptionPreview{}, nil
}

func (m *mockRedemptionService) Complete(ctx context.Context, userID, token string) (*model.RedemptionReceipt, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, userID, token)
	}
	return &model.RedemptionReceipt{Success: true}, nil
}

type mockInviteService struct {
	createFn func(ctx context.Context, userID string, req *model.CreateInviteRequest) (*model.Invite, error)
	listFn   func(ctx context.Context, userID, locationID string) ([]model.Invite, error)
	checkFn  func(ctx context.Context, code string) (*model.InviteCheck, error)
	acceptFn func(ctx context.Context, userID, code string) (*model.InviteAcceptance, error)
}

func (m *mockInviteService) Create(ctx context.Context, userID string, req *model.CreateInviteRequest) (*model.Invite, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, req)
	}
	return &model.Invite{ID: "inv-1", Code: "K7M2QX9P", LocationID: req.LocationID}, nil
}

func (m *mockInviteService) List(ctx context.Context, userID, locationID string) ([]model.Invite, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, locationID)
	}
	return []model.Invite{}, nil
}

func (m *mockInviteService) Check(ctx context.Context, code string) (*model.InviteCheck, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, code)
	}
	return &model.InviteCheck{Valid: true}, nil
}

func (m *mockInviteService) Accept(ctx context.Context, userID, code string) (*model.InviteAcceptance, error) {
	if m.acceptFn != nil {
		return m.acceptFn(ctx, userID, code)
	}
	return &model.InviteAcceptance{LocationID: "loc-1"}, nil
}

type mockPool struct {
	pingErr error
}

func (m *mockPool) Ping(ctx context.Context) error {
	return m.pingErr
}

// services holds the mocks behind a test app; nil fields get defaults.
type services struct {
	locations   *mockLocationService
	catalog     *mockCatalogService
	enrollments *mockEnrollmentService
	ledger      *mockLedgerService
	redemptions *mockRedemptionService
	invites     *mockInviteService
	pool        *mockPool
	cfg         RouteConfig
}

func setupTestApp(s services) *fiber.App {
	if s.locations == nil {
		s.locations = &mockLocationService{}
	}
	if s.catalog == nil {
		s.catalog = &mockCatalogService{}
	}
	if s.enrollments == nil {
		s.enrollments = &mockEnrollmentService{}
	}
	if s.ledger == nil {
		s.ledger = &mockLedgerService{}
	}
	if s.redemptions == nil {
		s.redemptions = &mockRedemptionService{}
	}
	if s.invites == nil {
		s.invites = &mockInviteService{}
	}
	if s.pool == nil {
		s.pool = &mockPool{}
	}

	v := validator.New()
	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Health:      NewHealthHandler(map[string]Pinger{"database": s.pool}),
		Locations:   NewLocationHandler(s.locations, v),
		Rewards:     NewRewardHandler(s.catalog, v),
		Clients:     NewClientHandler(s.enrollments, s.ledger, v),
		Redemptions: NewRedemptionHandler(s.redemptions, v),
		Customers:   NewCustomerHandler(s.enrollments, v),
		Invites:     NewInviteHandler(s.invites, v),
	}, s.cfg)
	return app
}

// call performs a request with optional JSON body and identity headers ("X-User-ID: u").
func call(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		name, value, _ := strings.Cut(h, ": ")
		req.Header.Set(name, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

const (
	asStaff    = HeaderUserID + ": staff-1"
	asCustomer = HeaderCustomerID + ": cust-1"
)
