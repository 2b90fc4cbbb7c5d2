package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/helpers"
	"github.com/stockplus/backend/models"
	"github.com/stockplus/backend/mpesa"
	"github.com/stockplus/backend/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

const testSecret = "test-secret"

// memoryStorage is an in-memory db.Storage with the same settlement rules as
// the SQL implementation.
type memoryStorage struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	payments   []models.Payment
	requests   map[string]*models.MpesaRequest
	users      map[int]*models.User
	failWrites bool
}

var _ db.Storage = (*memoryStorage)(nil)

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		orders:   map[string]*models.Order{},
		requests: map[string]*models.MpesaRequest{},
		users: map[int]*models.User{
			7: {ID: 7, Firstname: "Wanjiru", Lastname: "Kamau", Email: "wanjiru@example.com"},
			8: {ID: 8, Firstname: "Otieno", Lastname: "Ochieng"},
		},
	}
}

func (s *memoryStorage) seedOrder(id string, userID int, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = &models.Order{
		ID:            id,
		OrderDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromInt(amount),
		UserID:        userID,
		PaymentStatus: models.OrderStatusUnpaid,
	}
}

func (s *memoryStorage) order(id string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *memoryStorage) paymentsFor(orderID string) []models.Payment {
	payments, _ := s.GetPaymentsByOrderID(context.Background(), orderID, nil)
	return payments
}

func (s *memoryStorage) InsertOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return nil, errors.Wrap(db.ErrOrderExists, order.ID)
	}
	stored := *order
	if stored.PaymentStatus == "" {
		stored.PaymentStatus = models.OrderStatusUnpaid
	}
	s.orders[order.ID] = &stored
	result := stored
	return &result, nil
}

func (s *memoryStorage) GetOrderByID(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	result := *order
	return &result, nil
}

func (s *memoryStorage) SettlePayment(_ context.Context, opts *db.SettlePaymentOpts) (*db.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[opts.OrderID]
	if !ok {
		return nil, errors.Wrap(db.ErrOrderNotFound, opts.OrderID)
	}
	if s.failWrites {
		return nil, errors.Wrap(db.ErrWriteFailed, "disk full")
	}
	if opts.ReceiptNumber != "" {
		for _, p := range s.payments {
			if p.OrderID == opts.OrderID && p.ReceiptNumber != nil && *p.ReceiptNumber == opts.ReceiptNumber {
				existing := p
				return &db.Settlement{Payment: &existing, AlreadySettled: true}, nil
			}
		}
	}

	payment := models.Payment{
		ID:      len(s.payments) + 1,
		Amount:  opts.Amount,
		Method:  opts.Method,
		OrderID: opts.OrderID,
		Created: time.Now(),
	}
	if opts.ReceiptNumber != "" {
		receipt := opts.ReceiptNumber
		payment.ReceiptNumber = &receipt
	}
	if opts.PhoneNumber != "" {
		phone := opts.PhoneNumber
		payment.PhoneNumber = &phone
	}
	if !opts.TransactionDate.IsZero() {
		date := opts.TransactionDate
		payment.TransactionDate = &date
	}
	s.payments = append(s.payments, payment)
	order.PaymentStatus = models.OrderStatusPaid
	return &db.Settlement{Payment: &payment}, nil
}

func (s *memoryStorage) GetPaymentsByOrderID(_ context.Context, orderID string, opts *models.GetPaymentsOpts) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments := []models.Payment{}
	for _, p := range s.payments {
		if p.OrderID != orderID {
			continue
		}
		if opts != nil && len(opts.Methods) > 0 && !containsString(opts.Methods, p.Method) {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func (s *memoryStorage) InsertMpesaRequest(_ context.Context, request *models.MpesaRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *request
	s.requests[request.CheckoutRequestID] = &stored
	return nil
}

func (s *memoryStorage) GetMpesaRequest(_ context.Context, checkoutRequestID string) (*models.MpesaRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[checkoutRequestID]
	if !ok {
		return nil, nil
	}
	result := *request
	return &result, nil
}

func (s *memoryStorage) CloseMpesaRequest(_ context.Context, opts *db.CloseMpesaRequestOpts) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[opts.CheckoutRequestID]
	if !ok || request.OrderID != opts.OrderID || request.Status != models.MpesaRequestPending {
		return false, nil
	}
	code, desc := opts.ResultCode, opts.ResultDesc
	request.Status = opts.Status
	request.ResultCode = &code
	request.ResultDesc = &desc
	return true, nil
}

func (s *memoryStorage) GetUserByID(_ context.Context, userID int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	result := *user
	return &result, nil
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// fakeGateway answers the two Daraja endpoints the client uses.
type fakeGateway struct {
	*httptest.Server
	mu          sync.Mutex
	tokenCalls  int32
	pushCalls   int32
	tokenStatus int
	pushStatus  int
	pushBody    string
	lastPush    mpesa.STKPushRequest
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{tokenStatus: http.StatusOK, pushStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.tokenCalls, 1)
		g.mu.Lock()
		status := g.tokenStatus
		g.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"errorMessage":"Invalid Credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"token-123","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.pushCalls, 1)
		g.mu.Lock()
		defer g.mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&g.lastPush))
		w.WriteHeader(g.pushStatus)
		if g.pushBody != "" {
			w.Write([]byte(g.pushBody))
			return
		}
		w.Write([]byte(`{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`))
	})
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGateway) pushes() int32 {
	return atomic.LoadInt32(&g.pushCalls)
}

func (g *fakeGateway) tokens() int32 {
	return atomic.LoadInt32(&g.tokenCalls)
}

func (g *fakeGateway) push() mpesa.STKPushRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastPush
}

type fakeSender struct {
	sent chan *gomail.Message
}

var _ helpers.Sender = (*fakeSender)(nil)

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	for _, msg := range m {
		s.sent <- msg
	}
	return nil
}

type testEnv struct {
	store   *memoryStorage
	gateway *fakeGateway
	mail    *fakeSender
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   newMemoryStorage(),
		gateway: newFakeGateway(t),
		mail:    &fakeSender{sent: make(chan *gomail.Message, 10)},
	}

	client, err := mpesa.New(mpesa.Config{
		BaseURL:        env.gateway.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		CallbackURL:    "https://api.example.com/callback",
		Timeout:        5 * time.Second,
	})
	require.NoError(t, err)

	ctx := &config.AppContext{
		Config: config.Configuration{JWTSecret: testSecret},
		DB:     env.store,
		SMTP:   env.mail,
		Mpesa:  client,
	}
	ctx.Config.Mail.Folder = "../templates"
	ctx.Config.Mail.Path = "/mail"
	ctx.Config.Mail.PaymentSuccess.Template = "payment_success.html"
	ctx.Config.Mail.PaymentSuccess.Subject = "Payment received"
	ctx.Config.Mail.EmailFrom = "billing@stockplus.example"

	env.handler = server.NewHandler(ctx, GetRoutes())
	return env
}

func token(t *testing.T, userID int, roles ...int) string {
	t.Helper()
	claims := jwt.MapClaims{
		"u": map[string]interface{}{
			"i":     userID,
			"r":     roles,
			"email": "user@example.com",
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request through the full middleware chain. An empty bearer sends
// no Authorization header.
func (env *testEnv) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Message
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
