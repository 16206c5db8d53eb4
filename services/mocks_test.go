package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/Dosada05/arena-escrow/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const houseID int64 = 0

// MockGateway - управляемый оракул результата.
type MockGateway struct {
	mu        sync.Mutex
	Verdict   models.Verdict
	Err       error
	FailTimes int  // сколько первых вызовов вернут Err
	Hang      bool // ждать отмены контекста попытки
	CallCount int
}

func (m *MockGateway) CheckResult(ctx context.Context, proofRef string) (models.Verdict, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	hang, failTimes, err, verdict := m.Hang, m.FailTimes, m.Err, m.Verdict
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return models.Verdict{}, ctx.Err()
	}
	if call <= failTimes {
		if err == nil {
			err = errors.New("oracle unavailable")
		}
		return models.Verdict{}, err
	}
	return verdict, nil
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// RecordingNotifier запоминает опубликованные события.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (n *RecordingNotifier) Publish(event models.MatchEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *RecordingNotifier) Types() []models.MatchEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]models.MatchEventType, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}

func (n *RecordingNotifier) Count(t models.MatchEventType) int {
	count := 0
	for _, et := range n.Types() {
		if et == t {
			count++
		}
	}
	return count
}

type testEnv struct {
	store    *repositories.MemoryStore
	escrow   EscrowService
	ledger   LedgerService
	registry MatchRegistry
	gateway  *MockGateway
	notifier *RecordingNotifier
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() EscrowConfig {
	return EscrowConfig{
		FeeRate:             decimal.RequireFromString("0.10"),
		HouseAccountID:      houseID,
		AllowInProgressExit: true,
		MinStake:            decimal.RequireFromString("0.01"),
		MaxStake:            decimal.NewFromInt(10000),
		Adjudication: AdjudicationPolicy{
			Timeout:       50 * time.Millisecond,
			MaxRetries:    1,
			RetryDelay:    time.Millisecond,
			MinConfidence: 0.7,
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*EscrowConfig)) *testEnv {
	t.Helper()
	utils.BcryptCost = bcrypt.MinCost

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	store := repositories.NewMemoryStore()
	gw := &MockGateway{Verdict: models.Verdict{Outcome: models.OutcomeWin, Confidence: 0.95}}
	notifier := &RecordingNotifier{}
	logger := discardLogger()

	env := &testEnv{
		store:    store,
		escrow:   NewEscrowService(store, gw, notifier, cfg, logger),
		ledger:   NewLedgerService(store, logger),
		registry: NewMatchRegistry(store, cfg.FeeRate),
		gateway:  gw,
		notifier: notifier,
	}
	if _, err := env.ledger.EnsureAccount(context.Background(), houseID); err != nil {
		t.Fatalf("failed to open house account: %v", err)
	}
	return env
}

// fund открывает счёт и пополняет его.
func (e *testEnv) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.ledger.OpenAccount(ctx, userID); err != nil {
		t.Fatalf("open account %d: %v", userID, err)
	}
	if amount == "0" {
		return
	}
	if _, err := e.ledger.Deposit(ctx, userID, decimal.RequireFromString(amount)); err != nil {
		t.Fatalf("deposit to %d: %v", userID, err)
	}
}

func (e *testEnv) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	acc, err := e.ledger.GetAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("get account %d: %v", userID, err)
	}
	return acc.Balance
}

func (e *testEnv) assertBalance(t *testing.T, userID int64, want string) {
	t.Helper()
	got := e.balance(t, userID)
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("balance of user %d: want %s, got %s", userID, want, got)
	}
}

func (e *testEnv) state(t *testing.T, matchID int64) models.MatchState {
	t.Helper()
	m, err := e.store.GetMatch(context.Background(), matchID)
	if err != nil {
		t.Fatalf("get match %d: %v", matchID, err)
	}
	return m.State
}

// assertMatchBalanced проверяет, что по матчу списано ровно столько, сколько зачислено.
func (e *testEnv) assertMatchBalanced(t *testing.T, matchID int64) {
	t.Helper()
	entries, err := e.ledger.MatchEntries(context.Background(), matchID)
	if err != nil {
		t.Fatalf("match entries: %v", err)
	}
	debits, credits := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		if entry.Amount.IsNegative() {
			debits = debits.Add(entry.Amount.Neg())
		} else {
			credits = credits.Add(entry.Amount)
		}
	}
	if !debits.Equal(credits) {
		t.Errorf("match %d: debits %s != credits %s", matchID, debits, credits)
	}
}

// assertNoDrift проверяет, что сумма записей журнала равна балансу.
func (e *testEnv) assertNoDrift(t *testing.T, userID int64) {
	t.Helper()
	entries, err := e.ledger.History(context.Background(), userID, 10000)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Amount)
	}
	if got := e.balance(t, userID); !got.Equal(sum) {
		t.Errorf("user %d: balance %s drifted from ledger sum %s", userID, got, sum)
	}
}

func player(id int64) models.Actor  { return models.Actor{UserID: id, Role: models.RolePlayer} }
func arbiter(id int64) models.Actor { return models.Actor{UserID: id, Role: models.RoleArbiter} }
func admin(id int64) models.Actor   { return models.Actor{UserID: id, Role: models.RoleAdmin} }

func stake(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// startSolo создаёт SOLO матч creator против opponent и доводит его до IN_PROGRESS.
func (e *testEnv) startSolo(t *testing.T, creator, opponent int64, amount string) *models.Match {
	t.Helper()
	ctx := context.Background()
	m, err := e.escrow.CreateMatch(ctx, creator, CreateMatchInput{Mode: models.ModeSolo, Stake: stake(amount)})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	m, err = e.escrow.JoinSlot(ctx, m.ID, opponent, JoinSlotInput{Side: models.SideB})
	if err != nil {
		t.Fatalf("join match: %v", err)
	}
	if m.State != models.StateInProgress {
		t.Fatalf("expected in_progress, got %s", m.State)
	}
	return m
}
