package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Dosada05/arena-escrow/handlers"
	"github.com/Dosada05/arena-escrow/middleware"
	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/realtime"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/Dosada05/arena-escrow/services"
	"github.com/Dosada05/arena-escrow/utils"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const secret = "routes-test-secret"

type scriptedGateway struct {
	verdict models.Verdict
}

func (g scriptedGateway) CheckResult(context.Context, string) (models.Verdict, error) {
	return g.verdict, nil
}

type apiTest struct {
	t      *testing.T
	server *httptest.Server
	hub    *realtime.Hub
}

func newAPI(t *testing.T, verdict models.Verdict) *apiTest {
	t.Helper()
	utils.BcryptCost = bcrypt.MinCost
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := repositories.NewMemoryStore()
	hub := realtime.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	feeRate := decimal.RequireFromString("0.10")
	escrow := services.NewEscrowService(store, scriptedGateway{verdict: verdict}, hub, services.EscrowConfig{
		FeeRate:             feeRate,
		AllowInProgressExit: true,
		MinStake:            decimal.NewFromInt(1),
		MaxStake:            decimal.NewFromInt(1000),
		Adjudication:        services.DefaultAdjudicationPolicy(),
	}, logger)
	ledger := services.NewLedgerService(store, logger)
	registry := services.NewMatchRegistry(store, feeRate)
	proofs := services.NewProofService(store, escrow, nil, logger)
	if _, err := ledger.EnsureAccount(ctx, 0); err != nil {
		t.Fatalf("house account: %v", err)
	}

	router := chi.NewRouter()
	SetupRoutes(router, Options{JWTSecret: secret, AllowedOrigins: []string{"*"}},
		handlers.NewMatchHandler(escrow, registry, proofs),
		handlers.NewReviewHandler(escrow, registry),
		handlers.NewAccountHandler(ledger),
		handlers.NewAdminHandler(ledger, escrow),
		handlers.NewDashboardHandler(services.NewDashboardService(store, 0)),
		handlers.NewWebSocketHandler(hub, registry, []string{"*"}, logger),
	)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		escrow.Wait()
	})
	return &apiTest{t: t, server: server, hub: hub}
}

func (a *apiTest) token(userID int64, role models.UserRole) string {
	a.t.Helper()
	token, err := middleware.IssueToken(secret, userID, role, time.Hour)
	if err != nil {
		a.t.Fatalf("issue token: %v", err)
	}
	return token
}

// call выполняет запрос и декодирует JSON-ответ в map.
func (a *apiTest) call(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("do %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (a *apiTest) expect(wantStatus int, method, path, token string, body interface{}) map[string]interface{} {
	a.t.Helper()
	status, out := a.call(method, path, token, body)
	if status != wantStatus {
		a.t.Fatalf("%s %s: expected %d, got %d (%v)", method, path, wantStatus, status, out)
	}
	return out
}

// upload отправляет PNG в поле "proof" multipart-формы.
func (a *apiTest) upload(path, token string) int {
	a.t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("proof", "result.png")
	if err != nil {
		a.t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	_ = form.Close()

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, &body)
	if err != nil {
		a.t.Fatalf("request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func (a *apiTest) fund(adminToken string, userID int64, amount string) {
	a.t.Helper()
	a.expect(http.StatusCreated, http.MethodPost, "/admin/accounts", adminToken, map[string]interface{}{"user_id": userID})
	a.expect(http.StatusOK, http.MethodPost, "/admin/accounts/"+itoa(userID)+"/deposit", adminToken, map[string]string{"amount": amount})
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func matchID(t *testing.T, out map[string]interface{}) string {
	t.Helper()
	m, ok := out["match"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no match: %v", out)
	}
	return strconv.FormatInt(int64(m["id"].(float64)), 10)
}

func balanceOf(t *testing.T, out map[string]interface{}) decimal.Decimal {
	t.Helper()
	acc := out["account"].(map[string]interface{})
	return decimal.RequireFromString(acc["balance"].(string))
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	api := newAPI(t, models.Verdict{Outcome: models.OutcomeWin, Confidence: 0.9})
	adminToken := api.token(900, models.RoleAdmin)
	alice, bob := api.token(1, models.RolePlayer), api.token(2, models.RolePlayer)
	api.fund(adminToken, 1, "100")
	api.fund(adminToken, 2, "50")

	created := api.expect(http.StatusCreated, http.MethodPost, "/matches", alice, map[string]string{"mode": "solo", "stake": "20"})
	id := matchID(t, created)

	open := api.expect(http.StatusOK, http.MethodGet, "/matches", "", nil)
	if list := open["matches"].([]interface{}); len(list) != 1 {
		t.Fatalf("expected one open match, got %d", len(list))
	}
	view := api.expect(http.StatusOK, http.MethodGet, "/matches/"+id, "", nil)
	if pot := view["match"].(map[string]interface{})["pot"]; pot != "40" {
		t.Fatalf("expected projected pot 40, got %v", pot)
	}

	api.expect(http.StatusConflict, http.MethodPost, "/matches", alice, map[string]string{"mode": "solo", "stake": "20"})

	joined := api.expect(http.StatusOK, http.MethodPost, "/matches/"+id+"/join", bob, map[string]string{"side": "B"})
	if st := joined["match"].(map[string]interface{})["state"]; st != string(models.StateInProgress) {
		t.Fatalf("expected in_progress, got %v", st)
	}

	submitted := api.expect(http.StatusAccepted, http.MethodPost, "/matches/"+id+"/proof", alice, map[string]string{"proof_ref": "https://img/1.png"})
	if st := submitted["match"].(map[string]interface{})["state"]; st != string(models.StateFinalized) {
		t.Fatalf("expected finalized, got %v", st)
	}
	api.expect(http.StatusConflict, http.MethodPost, "/matches/"+id+"/proof", bob, map[string]string{"proof_ref": "again"})

	if got := balanceOf(t, api.expect(http.StatusOK, http.MethodGet, "/me/account", alice, nil)); !got.Equal(decimal.NewFromInt(116)) {
		t.Fatalf("alice balance: want 116, got %s", got)
	}
	ledger := api.expect(http.StatusOK, http.MethodGet, "/me/ledger", alice, nil)
	if entries := ledger["entries"].([]interface{}); len(entries) != 3 {
		t.Fatalf("expected deposit, hold and payout entries, got %d", len(entries))
	}

	stats := api.expect(http.StatusOK, http.MethodGet, "/admin/stats", adminToken, nil)
	if stats["house_balance"] != "4" {
		t.Fatalf("expected house balance 4, got %v", stats["house_balance"])
	}
}

func TestHumanReviewOverHTTP(t *testing.T) {
	api := newAPI(t, models.Inconclusive)
	adminToken := api.token(900, models.RoleAdmin)
	alice, bob := api.token(1, models.RolePlayer), api.token(2, models.RolePlayer)
	arbiter := api.token(500, models.RoleArbiter)
	api.fund(adminToken, 1, "100")
	api.fund(adminToken, 2, "100")

	id := matchID(t, api.expect(http.StatusCreated, http.MethodPost, "/matches", alice, map[string]string{"mode": "solo", "stake": "10"}))
	api.expect(http.StatusOK, http.MethodPost, "/matches/"+id+"/join", bob, map[string]string{"side": "B"})
	out := api.expect(http.StatusAccepted, http.MethodPost, "/matches/"+id+"/proof", bob, map[string]string{"proof_ref": "ref"})
	if st := out["match"].(map[string]interface{})["state"]; st != string(models.StateHumanReview) {
		t.Fatalf("expected human_review, got %v", st)
	}

	api.expect(http.StatusForbidden, http.MethodGet, "/review/matches", alice, nil)
	queue := api.expect(http.StatusOK, http.MethodGet, "/review/matches", arbiter, nil)
	if list := queue["matches"].([]interface{}); len(list) != 1 {
		t.Fatalf("expected one match in review, got %d", len(list))
	}

	api.expect(http.StatusBadRequest, http.MethodPost, "/review/matches/"+id+"/approve", arbiter, map[string]string{"winner_side": "C"})
	api.expect(http.StatusOK, http.MethodPost, "/review/matches/"+id+"/approve", arbiter, map[string]string{"winner_side": "B"})
	api.expect(http.StatusConflict, http.MethodPost, "/review/matches/"+id+"/approve", arbiter, map[string]string{"winner_side": "B"})

	if got := balanceOf(t, api.expect(http.StatusOK, http.MethodGet, "/me/account", bob, nil)); !got.Equal(decimal.NewFromInt(108)) {
		t.Fatalf("bob balance: want 108, got %s", got)
	}
}

func TestErrorStatusesOverHTTP(t *testing.T) {
	api := newAPI(t, models.Inconclusive)
	adminToken := api.token(900, models.RoleAdmin)
	rich, poor := api.token(1, models.RolePlayer), api.token(2, models.RolePlayer)
	api.fund(adminToken, 1, "100")
	api.fund(adminToken, 2, "5")

	api.expect(http.StatusUnauthorized, http.MethodPost, "/matches", "", map[string]string{"mode": "solo", "stake": "10"})
	api.expect(http.StatusNotFound, http.MethodGet, "/matches/999", "", nil)
	api.expect(http.StatusBadRequest, http.MethodGet, "/matches/abc", "", nil)
	api.expect(http.StatusBadRequest, http.MethodPost, "/matches", rich, map[string]string{"mode": "duo", "stake": "10"})

	id := matchID(t, api.expect(http.StatusCreated, http.MethodPost, "/matches", rich, map[string]string{"mode": "solo", "stake": "10", "password": "pw"}))
	api.expect(http.StatusForbidden, http.MethodPost, "/matches/"+id+"/join", poor, map[string]string{"side": "B", "password": "nope"})
	api.expect(http.StatusPaymentRequired, http.MethodPost, "/matches/"+id+"/join", poor, map[string]string{"side": "B", "password": "pw"})
	api.expect(http.StatusForbidden, http.MethodPost, "/matches/"+id+"/cancel", poor, nil)
	if status := api.upload("/matches/"+id+"/proof/upload", rich); status != http.StatusServiceUnavailable {
		t.Fatalf("upload without storage: expected 503, got %d", status)
	}
	api.expect(http.StatusForbidden, http.MethodPost, "/admin/matches/cancel-open", rich, nil)

	report := api.expect(http.StatusOK, http.MethodPost, "/admin/matches/cancel-open", adminToken, nil)
	if canceled := report["report"].(map[string]interface{})["canceled"].([]interface{}); len(canceled) != 1 {
		t.Fatalf("expected one canceled match, got %v", canceled)
	}
	api.expect(http.StatusConflict, http.MethodPost, "/matches/"+id+"/join", poor, map[string]string{"side": "B", "password": "pw"})

	api.expect(http.StatusOK, http.MethodGet, "/healthz", "", nil)
}
