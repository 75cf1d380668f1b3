package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/journal"
	"github.com/cleared-dev/asientos/internal/logging"
	"github.com/cleared-dev/asientos/internal/store/gormstore"
)

type testServer struct {
	router *gin.Engine
	store  *gormstore.Store
	svc    *journal.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	st, err := gormstore.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	acctSvc := accounts.NewService(st, logging.Discard())
	_, err = acctSvc.Seed(ctx, accounts.DefaultChart("comercial"))
	require.NoError(t, err)

	svc := journal.NewService(st, journal.Options{Logger: logging.Discard()})
	t.Cleanup(svc.Wait)

	r := NewRouter(config.ServerConfig{Mode: gin.TestMode}, &Handler{
		Journal:  svc,
		Accounts: acctSvc,
		Log:      logging.Discard(),
	})
	return &testServer{router: r, store: st, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const saleBody = `{
	"type": "CD",
	"date": "2025-03-10",
	"memo": "Venta al contado",
	"total": "500.00",
	"lines": [
		{"account": "1105", "debit": "500.00", "credit": "0"},
		{"account": "4100", "debit": "0", "credit": "500.00"}
	]
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestPostAndGetEntry(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/entries", saleBody, ActorHeader, "jperez")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, "CD-000001", got["key"])
	assert.Equal(t, "posted", got["status"])
	assert.Equal(t, "jperez", got["created_by"])
	assert.Equal(t, "2025-03-10", got["date"])
	assert.Len(t, got["lines"], 2)

	w = s.do(t, http.MethodGet, "/api/entries/CD-000001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, got["id"], decode(t, w)["id"])

	w = s.do(t, http.MethodGet, "/api/accounts/1105/balances/2025", "")
	require.Equal(t, http.StatusOK, w.Code)
	bal := decode(t, w)
	assert.Equal(t, "500", bal["closing"])
	assert.Equal(t, "2025", bal["period"])
}

func TestPostEntry_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest, KindBadRequest},
		{"bad date", `{"type":"CD","date":"10/03/2025","total":"1","lines":[]}`, http.StatusBadRequest, KindBadRequest},
		{"single line", `{"type":"CD","date":"2025-01-01","total":"1","lines":[{"account":"1105","debit":"1"}]}`,
			http.StatusUnprocessableEntity, KindValidation},
		{"total mismatch", `{"type":"CD","date":"2025-01-01","total":"1000","lines":[
			{"account":"5105","debit":"900"},{"account":"1110","credit":"900"}]}`,
			http.StatusUnprocessableEntity, KindValidation},
		{"unknown account", `{"type":"CD","date":"2025-01-01","total":"5","lines":[
			{"account":"1105","debit":"5"},{"account":"9999","credit":"5"}]}`,
			http.StatusNotFound, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/entries", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, decode(t, w)["kind"])
		})
	}
}

func TestPostEntry_DuplicateKey(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(saleBody, `"type": "CD",`, `"type": "CD", "folio": 4,`, 1)

	w := s.do(t, http.MethodPost, "/api/entries", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/entries", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["message"], "CD-000004")
}

func TestValidateEntry(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/entries/validate", saleBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, true, got["valid"])
	assert.Equal(t, "500", got["debits"])

	w = s.do(t, http.MethodGet, "/api/entries/CD-000001", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "validate stores nothing")

	unbalanced := strings.Replace(saleBody, `"credit": "500.00"`, `"credit": "499.00"`, 1)
	w = s.do(t, http.MethodPost, "/api/entries/validate", unbalanced)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["message"], "debits 500.00, credits 499.00")
}

func TestDraftRegisterReverse(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/entries/draft", saleBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode(t, w)
	assert.Equal(t, "pending", draft["status"])

	w = s.do(t, http.MethodPost, "/api/entries/CD-000001/reverse", "")
	assert.Equal(t, http.StatusConflict, w.Code, "drafts cannot be cancelled")

	w = s.do(t, http.MethodPost, "/api/entries/"+draft["id"].(string)+"/register", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "posted", decode(t, w)["status"])

	w = s.do(t, http.MethodPost, "/api/entries/CD-000001/register", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/entries/CD-000001/reverse", "", ActorHeader, "mgomez")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rev := decode(t, w)
	assert.Equal(t, "CD-000002", rev["key"])
	assert.Equal(t, draft["id"], rev["reversal_of"])
	assert.Equal(t, "mgomez", rev["created_by"])

	w = s.do(t, http.MethodPost, "/api/entries/CD-000001/reverse", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/accounts/1105/balances/2025", "")
	assert.Equal(t, "0", decode(t, w)["closing"])

	s.svc.Wait()
	log, err := s.store.AuditLog(context.Background())
	require.NoError(t, err)
	var found bool
	for _, e := range log {
		if e.Actor == "mgomez" {
			found = true
			assert.Equal(t, "192.0.2.1", e.Origin, "httptest client address")
		}
	}
	assert.True(t, found, "audit log: %+v", log)
}

func TestEntry_NotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/entries/XX-000001", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/entries/XX-000001/reverse", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBalanceEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/entries", saleBody).Code)

	w := s.do(t, http.MethodGet, "/api/accounts/1105/balances/2025-13", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/accounts/0000/balances/2025", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts/4100/balances/2025/recompute", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "500", decode(t, w)["closing"])
}

func TestListAccounts(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["accounts"], len(accounts.DefaultChart("comercial")))
}

func TestTrialBalance(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/entries", saleBody).Code)

	w := s.do(t, http.MethodGet, "/api/reports/trial-balance?period=2025", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tb := decode(t, w)
	assert.Equal(t, "2025", tb["period"])
	assert.Len(t, tb["rows"], 2)
	assert.Equal(t, "500", tb["debit_total"])
	assert.Equal(t, "500", tb["credit_total"])

	w = s.do(t, http.MethodGet, "/api/reports/trial-balance?period=2025&format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "balance_2025.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Balance", "A2")
	require.NoError(t, err)
	assert.Equal(t, "1105", v)

	for _, q := range []string{"", "?period=2025&level=x", "?period=2025&format=pdf"} {
		w = s.do(t, http.MethodGet, "/api/reports/trial-balance"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}
