package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/custody-engine/api"
	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/approval/store"
	"github.com/warp/custody-engine/auth"
	"github.com/warp/custody-engine/ledger"
	"github.com/warp/custody-engine/notify"
	"github.com/warp/custody-engine/objectstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	employeeToken = "token-employee"
	pmToken       = "token-pm"
	gmToken       = "token-gm"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	users := []approval.User{
		{ID: "emp-1", Name: "Amira Hassan", Role: approval.RoleEmployee, Active: true},
		{ID: "pm-1", Name: "Priya Nair", Role: approval.RoleProjectManager, Active: true},
		{ID: "gm-1", Name: "Omar Said", Role: approval.RoleGeneralManager, Active: true},
	}
	for _, u := range users {
		require.NoError(t, mem.CreateUser(ctx, u))
	}
	require.NoError(t, mem.CreateProject(ctx, approval.Project{ID: "proj-1", Name: "Harbor Upgrade", Active: true}))

	provider := auth.Static{
		employeeToken: {ID: "emp-1", Role: approval.RoleEmployee},
		pmToken:       {ID: "pm-1", Role: approval.RoleProjectManager},
		gmToken:       {ID: "gm-1", Role: approval.RoleGeneralManager},
	}

	objects, err := objectstore.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	engine := approval.NewEngine(mem, notify.NewMemory())
	handler := api.NewHandler(mem, engine, ledger.NewCalculator(mem), objects, provider, zap.NewNop())
	server := httptest.NewServer(api.NewRouter(handler, api.RouterConfig{}))
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, server *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func submitCash(t *testing.T, server *httptest.Server, amount string) api.MoneyRequestDTO {
	t.Helper()
	resp := do(t, server, http.MethodPost, "/api/requests/cash", employeeToken, map[string]any{
		"project_id": "proj-1",
		"amount":     amount,
		"reason":     "site float",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.MoneyRequestDTO](t, resp)
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAPI_MissingToken_Unauthorized(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_UnknownToken_Unauthorized(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/api/projects", "token-bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// FULL LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_CashRequestLifecycle(t *testing.T) {
	server := newTestServer(t)

	created := submitCash(t, server, "500")
	assert.Equal(t, "PENDING_PM", created.Status)
	assert.Equal(t, "emp-1", created.EmployeeID)

	// PM approves
	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/pm-decision", pmToken,
		api.DecisionBody{Approve: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PENDING_GM", decode[api.DecisionDTO](t, resp).Status)

	// GM approves: advance waits for transfer, balance untouched
	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/gm-decision", gmToken,
		api.DecisionBody{Approve: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "WAITING_TRANSFER", decode[api.DecisionDTO](t, resp).Status)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/totals", employeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[api.TotalsDTO](t, resp)
	assert.Equal(t, "0.00", totals.Balance)

	// Transfer completion makes it balance-effective
	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/transfer", gmToken,
		api.CompleteTransferBody{ProofURL: "/uploads/proof.pdf"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", decode[api.DecisionDTO](t, resp).Status)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/totals", employeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals = decode[api.TotalsDTO](t, resp)
	assert.Equal(t, "500.00", totals.Inflow)
	assert.Equal(t, "500.00", totals.Balance)
}

func TestAPI_WrongRole_Forbidden(t *testing.T) {
	server := newTestServer(t)
	created := submitCash(t, server, "100")

	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/pm-decision", employeeToken,
		api.DecisionBody{Approve: true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_StaleDecision_Conflict(t *testing.T) {
	server := newTestServer(t)
	created := submitCash(t, server, "100")

	resp := do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/pm-decision", pmToken,
		api.DecisionBody{Approve: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/requests/"+created.ID+"/pm-decision", pmToken,
		api.DecisionBody{Approve: true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_InvalidSubmission_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/requests/cash", employeeToken, map[string]any{
		"project_id": "proj-1",
		"amount":     "-5",
		"reason":     "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// QUEUES AND REPORTS
// =============================================================================

func TestAPI_PendingQueue(t *testing.T) {
	server := newTestServer(t)

	submitCash(t, server, "100")
	submitCash(t, server, "200")

	resp := do(t, server, http.MethodGet, "/api/requests?status=PENDING_PM", pmToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	queue := decode[[]api.MoneyRequestDTO](t, resp)
	assert.Len(t, queue, 2)
}

func TestAPI_ProjectExpenseReport(t *testing.T) {
	server := newTestServer(t)

	// Submit and fully approve an expense.
	resp := do(t, server, http.MethodPost, "/api/requests/expenses", employeeToken, map[string]any{
		"project_id":  "proj-1",
		"amount":      "120",
		"reason":      "equipment rental",
		"receipt_url": "/uploads/r.jpg",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	expense := decode[api.MoneyRequestDTO](t, resp)

	for _, step := range []struct{ path, token string }{
		{"/pm-decision", pmToken},
		{"/gm-decision", gmToken},
	} {
		resp := do(t, server, http.MethodPost, "/api/requests/"+expense.ID+step.path, step.token,
			api.DecisionBody{Approve: true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = do(t, server, http.MethodGet, "/api/projects/proj-1/expense-report", gmToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[api.BreakdownDTO](t, resp)
	assert.Equal(t, "120.00", report.Total)
	assert.Equal(t, "120.00", report.PerEmployee["Amira Hassan"])
}

func TestAPI_MembershipAndProjectsFor(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/memberships", pmToken, api.LinkMembershipRequest{
		EmployeeID: "emp-1",
		ProjectID:  "proj-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate link tolerated, reads stay set-valued.
	resp = do(t, server, http.MethodPost, "/api/memberships", pmToken, api.LinkMembershipRequest{
		EmployeeID: "emp-1",
		ProjectID:  "proj-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-1/projects", employeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"proj-1"}, decode[[]string](t, resp))
}

func TestAPI_MembershipByEmployee_Forbidden(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/memberships", employeeToken, api.LinkMembershipRequest{
		EmployeeID: "emp-1",
		ProjectID:  "proj-1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAPI_LoadScenario_SettledMonth(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/scenarios/load", gmToken,
		api.LoadScenarioRequest{Name: "settled-month"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/employees/emp-amira/totals", gmToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[api.TotalsDTO](t, resp)
	assert.Equal(t, "500.00", totals.Inflow)
	assert.Equal(t, "200.00", totals.Outflow)
	assert.Equal(t, "300.00", totals.Balance)
}

func TestAPI_ExportReport_CSV(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/api/scenarios/load", gmToken,
		api.LoadScenarioRequest{Name: "settled-month"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/projects/proj-harbor/expense-report/export", gmToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Amira Hassan,200.00")
}
