package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/electroshop/backend/internal/auth"
	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/event"
	"github.com/electroshop/backend/internal/repository"
	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/health"
	"github.com/electroshop/backend/pkg/httputil"
	pkgkafka "github.com/electroshop/backend/pkg/kafka"
	"github.com/electroshop/backend/pkg/middleware"
)

// --- Mock repositories ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockUserRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) ListWithStats(ctx context.Context, filter repository.UserFilter) ([]domain.UserWithStats, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.UserWithStats), args.Int(1), args.Error(2)
}

type mockAdminRepository struct {
	mock.Mock
}

func (m *mockAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *mockAdminRepository) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *mockAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *mockAdminRepository) CountByRole(ctx context.Context, role string) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *mockAdminRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockAdminRepository) UpdateTwoFactor(ctx context.Context, id int64, secret string, enabled bool) error {
	args := m.Called(ctx, id, secret, enabled)
	return args.Error(0)
}

type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockTokenRepository) Rotate(ctx context.Context, oldHash string, next *domain.RefreshToken) error {
	args := m.Called(ctx, oldHash, next)
	return args.Error(0)
}

func (m *mockTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockTokenRepository) DeleteByPrincipal(ctx context.Context, principalID int64, kind string) error {
	args := m.Called(ctx, principalID, kind)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetActiveByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) DashboardStats(ctx context.Context, lowStockThreshold int) (*domain.DashboardStats, error) {
	args := m.Called(ctx, lowStockThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

func (m *mockReportRepository) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.RecentOrder), args.Error(1)
}

func (m *mockReportRepository) MonthlyRevenue(ctx context.Context, months int) ([]domain.MonthlyRevenue, error) {
	args := m.Called(ctx, months)
	return args.Get(0).([]domain.MonthlyRevenue), args.Error(1)
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepository) List(ctx context.Context, page, perPage int) ([]domain.AuditEntry, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.AuditEntry), args.Int(1), args.Error(2)
}

// --- Test server ---

const testInvitationCode = "team-invite-2024"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testServer wires the full router against mock repositories, so tests
// exercise the production route layout and middleware chain.
type testServer struct {
	users    *mockUserRepository
	admins   *mockAdminRepository
	tokens   *mockTokenRepository
	products *mockProductRepository
	orders   *mockOrderRepository
	audit    *mockAuditRepository
	reports  *mockReportRepository
	tm       *auth.TokenManager
	router   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		users:    &mockUserRepository{},
		admins:   &mockAdminRepository{},
		tokens:   &mockTokenRepository{},
		products: &mockProductRepository{},
		orders:   &mockOrderRepository{},
		audit:    &mockAuditRepository{},
		reports:  &mockReportRepository{},
		tm:       auth.NewTokenManager("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour, 5*time.Minute),
	}

	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)

	authService := service.NewAuthService(
		s.users, s.admins, s.tokens, s.audit, s.tm, producer, logger, testInvitationCode, bcrypt.MinCost)
	orderService := service.NewOrderService(s.orders, s.products, s.audit, producer, logger)
	productService := service.NewProductService(s.products, s.audit, logger)
	userService := service.NewUserService(s.users, s.tokens, s.audit, logger)
	auditService := service.NewAuditService(s.audit, logger)
	reportService := service.NewReportService(s.reports, logger)

	s.router = NewRouter(RouterDeps{
		Auth:      NewAuthHandler(authService, logger),
		AdminAuth: NewAdminAuthHandler(authService, logger),
		Products:  NewProductHandler(productService, logger),
		Orders:    NewOrderHandler(orderService, logger),
		Users:     NewUserHandler(userService, logger),
		Audit:     NewAuditHandler(auditService, logger),
		Reports:   NewReportHandler(reportService, logger),
		Guard:     NewGuard(s.tm, s.users, s.admins, logger),
		Health:    health.NewHandler(),
		Logger:    logger,
		CORS:      middleware.DefaultCORSConfig(),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	// The JSON media type check also covers body-less POSTs.
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "203.0.113.7:54321"

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// newPlainRequest builds a request without the JSON content type so tests
// can exercise the media type check.
func newPlainRequest(method, path, body string) *http.Request {
	return httptest.NewRequest(method, path, strings.NewReader(body))
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) userToken(t *testing.T, id int64) string {
	t.Helper()
	token, err := s.tm.GenerateAccessToken(id, domain.KindUser)
	require.NoError(t, err)
	return token
}

func (s *testServer) adminToken(t *testing.T, id int64) string {
	t.Helper()
	token, err := s.tm.GenerateAccessToken(id, domain.KindAdmin)
	require.NoError(t, err)
	return token
}

// expectUser primes the liveness recheck done by the user auth guard.
func (s *testServer) expectUser(user *domain.User) {
	s.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
}

// expectAdmin primes the liveness recheck done by the admin auth guard.
func (s *testServer) expectAdmin(admin *domain.Admin) {
	s.admins.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// decodeData re-marshals the untyped data payload into a concrete type.
func decodeData(t *testing.T, data any, dst any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// --- Fixtures ---

func activeUser(t *testing.T) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           7,
		Email:        "jane@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		FirstName:    "Jane",
		LastName:     "Doe",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func activeAdmin(t *testing.T) *domain.Admin {
	now := time.Now().UTC()
	return &domain.Admin{
		ID:           3,
		Email:        "ops@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		FullName:     "Ops Admin",
		Role:         domain.AdminRoleAdmin,
		Permissions:  domain.DefaultPermissions(),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:        1,
		Name:      "Mechanical Keyboard",
		Slug:      "mechanical-keyboard",
		Price:     12999,
		Stock:     5,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:          42,
		OrderNumber: "ORD-LX2M3N4P-AB12",
		UserID:      7,
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ID: 1, OrderID: 42, ProductID: 1, Name: "Mechanical Keyboard", Price: 12999, Quantity: 1},
		},
		Subtotal:    12999,
		Tax:         1040,
		ShippingFee: 999,
		Total:       15038,
		ShippingAddress: &domain.Address{
			FullName:    "Jane Doe",
			AddressLine: "1 Main St",
			City:        "Springfield",
			PostalCode:  "12345",
			Country:     "US",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
