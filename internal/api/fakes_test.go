package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/signal-miniapp/internal/adapter"
	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/metrics"
	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/session"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/types"
	"github.com/signal-miniapp/internal/wizard"
	"github.com/signal-miniapp/internal/worker"
)

const (
	testToken      = "bot-token"
	testTelegramID = int64(42)
)

// fakeBackend models the backend state behind every service the gateway uses
type fakeBackend struct {
	mu sync.Mutex

	calls       map[string]int
	credentials []string

	balance     models.Balance
	automod     bool
	plan        types.Plan
	percent     types.ReinvestPercent
	signals     []models.Signal
	automodCost float64
	referrals   []string
	failPlan    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:       make(map[string]int),
		balance:     models.Balance{TelegramID: testTelegramID, Balance: 500, TradeBalance: 150},
		plan:        types.PlanStandard,
		percent:     types.DefaultReinvestPercent,
		automodCost: 1000,
		signals: []models.Signal{{
			ID:        7,
			Name:      "BTC",
			Cost:      300,
			ExpiresAt: types.Timestamp{Time: time.Now().Add(3 * time.Hour)},
		}},
	}
}

func (f *fakeBackend) record(ctx context.Context, name string) {
	f.calls[name]++
	if token, ok := adapter.CredentialFromContext(ctx); ok {
		f.credentials = append(f.credentials, token)
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func okResponse(message string) *models.ActionResponse {
	return &models.ActionResponse{Message: message}
}

func insufficient(path string) error {
	return apperrors.NewResponseError(http.MethodPost, path, http.StatusBadRequest, []byte(`{"detail":"Insufficient balance"}`), "Insufficient balance")
}

func (f *fakeBackend) Authenticate(ctx context.Context, token string) (*models.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "auth")
	if token != testToken {
		return nil, apperrors.NewUnauthorizedError("unknown token")
	}
	return &models.AuthSession{TelegramID: testTelegramID, Username: "ann"}, nil
}

func (f *fakeBackend) GetUser(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "user")
	return &models.User{TelegramID: id, Username: "ann", Automod: f.automod, Plan: f.plan, ReinvestPercent: f.percent}, nil
}

func (f *fakeBackend) GetBalance(ctx context.Context, id int64) (*models.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "balance")
	b := f.balance
	return &b, nil
}

func (f *fakeBackend) Transactions(ctx context.Context, id int64) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "transactions")
	return []models.Transaction{{ID: 1, Amount: 100, Type: "deposit"}}, nil
}

func (f *fakeBackend) Profits(ctx context.Context, id int64) ([]models.Profit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "profits")
	return []models.Profit{{ID: 1, Amount: 12.5, SignalID: 7}}, nil
}

func (f *fakeBackend) Investments(ctx context.Context, id int64) (*models.Investments, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "investments")
	return &models.Investments{UserID: id, Items: []models.Investment{{ID: 1, Amount: 100}, {ID: 2, Amount: 50}}}, nil
}

func (f *fakeBackend) Active(ctx context.Context, id int64) ([]models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "signals")
	return append([]models.Signal(nil), f.signals...), nil
}

func (f *fakeBackend) Tree(ctx context.Context, id int64) (*models.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "referral_tree")
	return &models.Referral{TelegramID: id, InvitedUsers: []models.Referral{{TelegramID: 2}, {TelegramID: 3}}}, nil
}

func (f *fakeBackend) Check(ctx context.Context, id int64, link string) (*models.CheckReferralResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "check_referral")
	f.referrals = append(f.referrals, link)
	return &models.CheckReferralResult{Exists: true, Message: "Пользователь успешно привязан"}, nil
}

func (f *fakeBackend) Deposit(ctx context.Context, id int64, amount float64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "deposit")
	if amount <= 0 {
		return nil, apperrors.NewInvalidParameterError("amount", "must be greater than zero")
	}
	f.balance.Balance += amount
	return okResponse("deposited"), nil
}

func (f *fakeBackend) TransferToTrading(ctx context.Context, id int64, amount float64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "transfer_to_trading")
	if f.balance.Balance < amount {
		return nil, insufficient("transfer_to_trading")
	}
	f.balance.Balance -= amount
	f.balance.TradeBalance += amount
	return okResponse("moved"), nil
}

func (f *fakeBackend) TransferToMain(ctx context.Context, id int64, amount float64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "transfer_to_main")
	if f.balance.TradeBalance < amount {
		return nil, insufficient("transfer_to_main")
	}
	f.balance.TradeBalance -= amount
	f.balance.Balance += amount
	return okResponse("moved"), nil
}

func (f *fakeBackend) UpdatePlan(ctx context.Context, id int64, plan types.Plan) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "update_plan")
	if f.failPlan {
		return nil, apperrors.NewTransportError(http.MethodPut, "update_plan", context.DeadlineExceeded)
	}
	f.plan = plan
	return okResponse("plan"), nil
}

func (f *fakeBackend) SetPercent(ctx context.Context, id int64, percent types.ReinvestPercent) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "update_reinvest")
	f.percent = percent
	return okResponse("percent"), nil
}

func (f *fakeBackend) EnableAutomod(ctx context.Context, id int64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "enable_automod")
	if f.balance.TradeBalance < f.automodCost {
		required, current := f.automodCost, f.balance.TradeBalance
		return nil, apperrors.NewBusinessFailure("enable_automod", "Недостаточно средств", apperrors.BusinessDetails{
			RequiredAmount: &required,
			CurrentBalance: &current,
		})
	}
	f.automod = true
	return okResponse("on"), nil
}

func (f *fakeBackend) DisableAutomod(ctx context.Context, id int64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "disable_automod")
	f.automod = false
	return okResponse("off"), nil
}

func (f *fakeBackend) Join(ctx context.Context, id, signalID int64) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, "join_signal")
	for i, s := range f.signals {
		if s.ID != signalID {
			continue
		}
		if f.balance.TradeBalance < s.Cost {
			return nil, apperrors.NewBusinessFailure("join_signal", "Insufficient balance", apperrors.BusinessDetails{})
		}
		f.balance.TradeBalance -= s.Cost
		f.signals = append(f.signals[:i], f.signals[i+1:]...)
		return okResponse("joined"), nil
	}
	return nil, apperrors.NewResponseError(http.MethodPost, "signals/join", http.StatusNotFound, nil, "Signal not found")
}

type testEnv struct {
	server  *Server
	backend *fakeBackend
	store   *storage.SessionStore
	caches  *storage.SessionCaches
	board   *worker.CountdownBoard
	cookies *session.CookieManager
	guard   *mutation.Guard
	redis   *miniredis.Miniredis
	handler http.Handler
}

func newTestEnv(t *testing.T, cfg ...func(*ServerConfig)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := newFakeBackend()
	m := metrics.New()
	router := navigation.NewRouter(nil)
	ctrl := mutation.NewController(router, m)
	guard := mutation.NewGuard()
	flows := mutation.NewFlows(ctrl, guard, mutation.FlowServices{
		Balance:  backend,
		Plan:     backend,
		Reinvest: backend,
		Automod:  backend,
		Signals:  backend,
	})
	cookies, err := session.NewCookieManager(session.CookieConfig{
		Secret: strings.Repeat("t", 32),
		TTL:    time.Hour,
		Name:   "auth",
	})
	require.NoError(t, err)

	config := &ServerConfig{
		Host:             "127.0.0.1",
		Port:             "0",
		ActionsPerSecond: 100,
		ActionBurst:      100,
		ReferralBaseURL:  "https://app.com",
		BotLink:          "https://t.me/signal_bot",
	}
	for _, c := range cfg {
		c(config)
	}

	env := &testEnv{
		backend: backend,
		store:   storage.NewSessionStore(client),
		caches:  storage.NewSessionCaches(m),
		board:   worker.NewCountdownBoard(),
		cookies: cookies,
		guard:   guard,
		redis:   mr,
	}
	env.server, err = NewServer(config, Dependencies{
		Users:     backend,
		Balances:  backend,
		Signals:   backend,
		Referrals: backend,
		Flows:     flows,
		Committer: wizard.NewCommitter(ctrl, flows, router, guard),
		Router:    router,
		Sessions:  env.store,
		Caches:    env.caches,
		Cookies:   cookies,
		Board:     env.board,
		Metrics:   m,
	})
	require.NoError(t, err)
	env.handler = env.server.Handler()
	return env
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
