package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

type mockExpenseService struct {
	submitFn         func(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error)
	decideFn         func(ctx context.Context, req service.DecisionRequest) (*entity.Expense, error)
	getFn            func(ctx context.Context, id string) (*entity.Expense, error)
	listFn           func(ctx context.Context, limit, offset int) ([]*entity.Expense, error)
	listPendingForFn func(ctx context.Context, approverID string) ([]*entity.Expense, error)
}

func (m *mockExpenseService) Submit(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error) {
	return m.submitFn(ctx, req)
}

func (m *mockExpenseService) Decide(ctx context.Context, req service.DecisionRequest) (*entity.Expense, error) {
	return m.decideFn(ctx, req)
}

func (m *mockExpenseService) Get(ctx context.Context, id string) (*entity.Expense, error) {
	return m.getFn(ctx, id)
}

func (m *mockExpenseService) List(ctx context.Context, limit, offset int) ([]*entity.Expense, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockExpenseService) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockExpenseService) ListPendingFor(ctx context.Context, approverID string) ([]*entity.Expense, error) {
	if m.listPendingForFn != nil {
		return m.listPendingForFn(ctx, approverID)
	}
	return nil, nil
}

type mockRuleService struct {
	rules []entity.Rule
}

func (m *mockRuleService) Create(ctx context.Context, rule entity.Rule) (*entity.Rule, error) {
	rule.ID = "rule-new"
	return &rule, nil
}

func (m *mockRuleService) Update(ctx context.Context, rule entity.Rule) (*entity.Rule, error) {
	return &rule, nil
}

func (m *mockRuleService) SetActive(ctx context.Context, id string, active bool) error {
	if id == "missing" {
		return port.ErrRuleNotFound
	}
	return nil
}

func (m *mockRuleService) Get(ctx context.Context, id string) (*entity.Rule, error) {
	return nil, port.ErrRuleNotFound
}

func (m *mockRuleService) List(ctx context.Context) ([]entity.Rule, error) {
	return m.rules, nil
}

type mockUserService struct{}

func (m *mockUserService) Create(ctx context.Context, user entity.User) (*entity.User, error) {
	user.ID = "user-new"
	return &user, nil
}

func (m *mockUserService) Update(ctx context.Context, user entity.User) (*entity.User, error) {
	return &user, nil
}

func (m *mockUserService) Deactivate(ctx context.Context, id string) error { return nil }

func (m *mockUserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return nil, port.ErrUserNotFound
}

func (m *mockUserService) List(ctx context.Context) ([]entity.User, error) { return nil, nil }

type mockReportService struct{}

func (m *mockReportService) WriteExpenseReport(ctx context.Context, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

type mockSettingsService struct {
	settings  entity.Settings
	convertFn func(ctx context.Context, amount float64, from, to string) (float64, error)
}

func (m *mockSettingsService) Get(ctx context.Context) (*entity.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Update(ctx context.Context, settings entity.Settings) (*entity.Settings, error) {
	return &settings, nil
}

func (m *mockSettingsService) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if m.convertFn != nil {
		return m.convertFn(ctx, amount, from, to)
	}
	return amount, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(t *testing.T, expenseService service.ExpenseService) *Server {
	t.Helper()
	return NewServer(
		ServerConfig{Host: "127.0.0.1", Port: 0},
		expenseService,
		&mockRuleService{},
		&mockUserService{},
		&mockReportService{},
		&mockSettingsService{settings: entity.Settings{CompanyName: "ExpenseFlow Inc.", DefaultCurrency: "USD"}},
		nopLogger{},
	)
}

func doRequest(server *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeResponse(t, recorder)
	assert.True(t, resp.Success)
}

func TestSubmitExpense(t *testing.T) {
	var captured service.SubmitRequest
	expenseSvc := &mockExpenseService{
		submitFn: func(ctx context.Context, req service.SubmitRequest) (*entity.Expense, error) {
			captured = req
			return &entity.Expense{ID: "exp-1", EmployeeID: req.EmployeeID, Status: entity.StatusPending}, nil
		},
	}
	server := newTestServer(t, expenseSvc)

	body := map[string]interface{}{
		"amount":      250.0,
		"currency":    "EUR",
		"category":    "Travel",
		"description": "Business trip to Paris",
	}
	recorder := doRequest(server, http.MethodPost, "/api/expenses", body, map[string]string{
		actingUserHeader: "user-3",
	})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "user-3", captured.EmployeeID)
	assert.Equal(t, entity.Category("Travel"), captured.Category)

	resp := decodeResponse(t, recorder)
	assert.True(t, resp.Success)
}

func TestSubmitExpense_MissingEmployee(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	body := map[string]interface{}{
		"amount":   50.0,
		"currency": "USD",
		"category": "Meals",
	}
	recorder := doRequest(server, http.MethodPost, "/api/expenses", body, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDecideExpense_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"expense not found", port.ErrExpenseNotFound, http.StatusNotFound},
		{"wrong approver", service.ErrNotCurrentApprover, http.StatusForbidden},
		{"already decided", approval.ErrInvalidTransition, http.StatusConflict},
		{"bad decision value", approval.ErrInvalidDecision, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expenseSvc := &mockExpenseService{
				decideFn: func(ctx context.Context, req service.DecisionRequest) (*entity.Expense, error) {
					return nil, tt.serviceErr
				},
			}
			server := newTestServer(t, expenseSvc)

			body := map[string]interface{}{"decision": "approved"}
			recorder := doRequest(server, http.MethodPost, "/api/expenses/exp-1/decision", body, map[string]string{
				actingUserHeader: "user-2",
			})

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

func TestDecideExpense_RequiresActingUser(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	body := map[string]interface{}{"decision": "approved"}
	recorder := doRequest(server, http.MethodPost, "/api/expenses/exp-1/decision", body, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDecideExpense_Success(t *testing.T) {
	expenseSvc := &mockExpenseService{
		decideFn: func(ctx context.Context, req service.DecisionRequest) (*entity.Expense, error) {
			return &entity.Expense{
				ID:           req.ExpenseID,
				Status:       entity.StatusApproved,
				CurrentIndex: -1,
			}, nil
		},
	}
	server := newTestServer(t, expenseSvc)

	body := map[string]interface{}{"decision": "approved", "comment": "looks fine"}
	recorder := doRequest(server, http.MethodPost, "/api/expenses/exp-1/decision", body, map[string]string{
		actingUserHeader: "user-2",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeResponse(t, recorder)
	assert.True(t, resp.Success)
}

func TestListPendingExpenses_RequiresApprover(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodGet, "/api/expenses/pending", nil, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListPendingExpenses(t *testing.T) {
	expenseSvc := &mockExpenseService{
		listPendingForFn: func(ctx context.Context, approverID string) ([]*entity.Expense, error) {
			assert.Equal(t, "user-2", approverID)
			return []*entity.Expense{{ID: "exp-1", Status: entity.StatusPending}}, nil
		},
	}
	server := newTestServer(t, expenseSvc)

	recorder := doRequest(server, http.MethodGet, "/api/expenses/pending", nil, map[string]string{
		actingUserHeader: "user-2",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestConvertAmount(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodGet, "/api/convert?amount=100&from=USD&to=USD", nil, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	resp := decodeResponse(t, recorder)
	assert.True(t, resp.Success)
}

func TestConvertAmount_InvalidAmount(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodGet, "/api/convert?amount=abc&from=USD&to=EUR", nil, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDeactivateRule_NotFound(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodPost, "/api/rules/missing/deactivate", nil, nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestExportExpenseReport(t *testing.T) {
	server := newTestServer(t, &mockExpenseService{})

	recorder := doRequest(server, http.MethodGet, "/api/reports/expenses.xlsx", nil, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "xlsx", recorder.Body.String())
}
