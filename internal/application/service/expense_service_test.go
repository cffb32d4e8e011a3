package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Mock repositories

type mockExpenseRepo struct {
	createFunc  func(ctx context.Context, expense *entity.Expense) error
	getByIDFunc func(ctx context.Context, id string) (*entity.Expense, error)
	updateFunc  func(ctx context.Context, expense *entity.Expense) error

	created []*entity.Expense
	updated []*entity.Expense
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	m.created = append(m.created, expense)
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrExpenseNotFound
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.Expense) error {
	m.updated = append(m.updated, expense)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockExpenseRepo) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockExpenseRepo) ListPendingForApprover(ctx context.Context, approverID string) ([]*entity.Expense, error) {
	return nil, nil
}

type mockRuleRepo struct {
	rules []entity.Rule
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *entity.Rule) error { return nil }
func (m *mockRuleRepo) GetByID(ctx context.Context, id string) (*entity.Rule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			return &m.rules[i], nil
		}
	}
	return nil, port.ErrRuleNotFound
}
func (m *mockRuleRepo) Update(ctx context.Context, rule *entity.Rule) error         { return nil }
func (m *mockRuleRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }
func (m *mockRuleRepo) List(ctx context.Context) ([]entity.Rule, error)             { return m.rules, nil }

type mockUserRepo struct {
	users []entity.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, port.ErrUserNotFound
}
func (m *mockUserRepo) Update(ctx context.Context, user *entity.User) error { return nil }
func (m *mockUserRepo) List(ctx context.Context) ([]entity.User, error)     { return m.users, nil }

type mockSettingsRepo struct {
	settings entity.Settings
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*entity.Settings, error) {
	s := m.settings
	return &s, nil
}
func (m *mockSettingsRepo) Update(ctx context.Context, settings *entity.Settings) error { return nil }

type mockRateProvider struct {
	rates approval.RateTable
	err   error
}

func (m *mockRateProvider) Rates(ctx context.Context, base string) (approval.RateTable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rates, nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func testFixtures() (*mockExpenseRepo, *mockRuleRepo, *mockUserRepo, *mockSettingsRepo, *mockRateProvider) {
	expenseRepo := &mockExpenseRepo{}
	ruleRepo := &mockRuleRepo{rules: []entity.Rule{
		{ID: "rule-travel", Name: "Travel > $500", Category: "Travel", RuleType: entity.RuleTypeThreshold,
			Threshold: 500, Approvers: []string{"mgr-1", "admin-1"}, IsActive: true, Priority: 1},
		{ID: "rule-all", Name: "All Expenses > $1000", Category: entity.CategoryAny, RuleType: entity.RuleTypeThreshold,
			Threshold: 1000, Approvers: []string{"mgr-1", "admin-1"}, IsActive: true, Priority: 2},
	}}
	userRepo := &mockUserRepo{users: []entity.User{
		{ID: "admin-1", Name: "John Admin", Email: "john@expenseflow.test", Role: entity.RoleAdmin, Status: entity.UserStatusActive},
		{ID: "mgr-1", Name: "Sarah Manager", Email: "sarah@expenseflow.test", Role: entity.RoleManager, Status: entity.UserStatusActive},
		{ID: "emp-1", Name: "Mike Employee", Email: "mike@expenseflow.test", Role: entity.RoleEmployee, ManagerID: "mgr-1", Status: entity.UserStatusActive},
	}}
	settingsRepo := &mockSettingsRepo{settings: entity.Settings{
		CompanyName:       "ExpenseFlow Inc.",
		DefaultCurrency:   "USD",
		AutoApprovalLimit: 100,
	}}
	rateProvider := &mockRateProvider{rates: approval.RateTable{"USD": 1, "EUR": 0.92}}
	return expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider
}

func newTestService(expenseRepo *mockExpenseRepo, ruleRepo *mockRuleRepo, userRepo *mockUserRepo,
	settingsRepo *mockSettingsRepo, rateProvider *mockRateProvider, opts ExpenseServiceOptions) ExpenseService {
	return NewExpenseService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider,
		&mockTxManager{}, nopLogger{}, opts)
}

func TestSubmit_NormalizesAndFallsBackToManager(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	// 250 EUR at {USD:1, EUR:0.92} normalizes to ~271.74 USD: below
	// both thresholds, above the auto-approval limit of 100, so the
	// claim stays pending with the fallback manager chain.
	expense, err := svc.Submit(context.Background(), SubmitRequest{
		EmployeeID: "emp-1",
		Amount:     250,
		Currency:   "EUR",
		Category:   "Travel",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	want := 250 / 0.92
	if math.Abs(expense.ConvertedAmount-want) > 1e-9 {
		t.Errorf("ConvertedAmount = %v, want %v", expense.ConvertedAmount, want)
	}
	if expense.ConvertedCurrency != "USD" {
		t.Errorf("ConvertedCurrency = %s, want USD", expense.ConvertedCurrency)
	}
	if expense.Status != entity.StatusPending {
		t.Errorf("Status = %s, want pending", expense.Status)
	}
	if current, _ := expense.CurrentApprover(); current != "mgr-1" {
		t.Errorf("CurrentApprover = %s, want mgr-1", current)
	}
	if len(expenseRepo.created) != 1 {
		t.Errorf("created %d expenses, want 1", len(expenseRepo.created))
	}
}

func TestSubmit_AutoApprovesSmallClaims(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	expense, err := svc.Submit(context.Background(), SubmitRequest{
		EmployeeID: "emp-1",
		Amount:     40,
		Currency:   "USD",
		Category:   "Meals",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if expense.Status != entity.StatusApproved {
		t.Errorf("Status = %s, want approved", expense.Status)
	}
	if expense.ApprovedAt == nil {
		t.Error("ApprovedAt not stamped")
	}
	if len(expense.History) != 1 || expense.History[0].ApproverID != entity.SystemActorID {
		t.Errorf("History = %+v, want single system auto-approval entry", expense.History)
	}
	if _, ok := expense.CurrentApprover(); ok {
		t.Error("auto-approved expense should have no current approver")
	}
}

func TestSubmit_MatchedRuleChainOverLimit(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	expense, err := svc.Submit(context.Background(), SubmitRequest{
		EmployeeID: "emp-1",
		Amount:     800,
		Currency:   "USD",
		Category:   "Travel",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if expense.Status != entity.StatusPending {
		t.Errorf("Status = %s, want pending", expense.Status)
	}
	if len(expense.Approvers) != 2 || expense.Approvers[0] != "mgr-1" || expense.Approvers[1] != "admin-1" {
		t.Errorf("Approvers = %v, want [mgr-1 admin-1]", expense.Approvers)
	}
}

func TestSubmit_KeepsAmountWhenRatesUnavailable(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	rateProvider.err = errors.New("exchange api down")
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	expense, err := svc.Submit(context.Background(), SubmitRequest{
		EmployeeID: "emp-1",
		Amount:     250,
		Currency:   "EUR",
		Category:   "Travel",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if expense.ConvertedAmount != 250 {
		t.Errorf("ConvertedAmount = %v, want 250 (degraded-mode fallback)", expense.ConvertedAmount)
	}
}

func TestSubmit_UnknownEmployee(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	_, err := svc.Submit(context.Background(), SubmitRequest{EmployeeID: "ghost", Amount: 10, Currency: "USD"})
	if !errors.Is(err, port.ErrUserNotFound) {
		t.Errorf("Submit() error = %v, want ErrUserNotFound", err)
	}
}

func TestDecide_EnforcesCurrentApprover(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	pending := &entity.Expense{
		ID:           "exp-1",
		Status:       entity.StatusPending,
		Approvers:    []string{"mgr-1", "admin-1"},
		CurrentIndex: 0,
	}
	expenseRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.Expense, error) {
		return pending, nil
	}
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider,
		ExpenseServiceOptions{EnforceCurrentApprover: true})

	_, err := svc.Decide(context.Background(), DecisionRequest{
		ExpenseID:  "exp-1",
		ApproverID: "admin-1", // not the current approver
		Decision:   entity.DecisionApproved,
	})
	if !errors.Is(err, ErrNotCurrentApprover) {
		t.Fatalf("Decide() error = %v, want ErrNotCurrentApprover", err)
	}

	expense, err := svc.Decide(context.Background(), DecisionRequest{
		ExpenseID:  "exp-1",
		ApproverID: "mgr-1",
		Decision:   entity.DecisionApproved,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if current, _ := expense.CurrentApprover(); current != "admin-1" {
		t.Errorf("CurrentApprover = %s, want admin-1", current)
	}
	if len(expenseRepo.updated) != 1 {
		t.Errorf("persisted %d updates, want 1", len(expenseRepo.updated))
	}
}

func TestDecide_PermissiveWithoutPolicy(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	pending := &entity.Expense{
		ID:           "exp-1",
		Status:       entity.StatusPending,
		Approvers:    []string{"mgr-1"},
		CurrentIndex: 0,
	}
	expenseRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.Expense, error) {
		return pending, nil
	}
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	expense, err := svc.Decide(context.Background(), DecisionRequest{
		ExpenseID:  "exp-1",
		ApproverID: "someone-else",
		Decision:   entity.DecisionRejected,
		Comment:    "not a valid expense",
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if expense.Status != entity.StatusRejected {
		t.Errorf("Status = %s, want rejected", expense.Status)
	}
}

func TestDecide_InvalidTransitionSurfaces(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	now := time.Now()
	expenseRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.Expense, error) {
		return &entity.Expense{
			ID:           "exp-1",
			Status:       entity.StatusApproved,
			ApprovedAt:   &now,
			CurrentIndex: -1,
		}, nil
	}
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	_, err := svc.Decide(context.Background(), DecisionRequest{
		ExpenseID:  "exp-1",
		ApproverID: "mgr-1",
		Decision:   entity.DecisionApproved,
	})
	if !errors.Is(err, approval.ErrInvalidTransition) {
		t.Errorf("Decide() error = %v, want ErrInvalidTransition", err)
	}
	if len(expenseRepo.updated) != 0 {
		t.Error("terminal expense must not be persisted again")
	}
}

func TestDecide_UnknownExpense(t *testing.T) {
	expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider := testFixtures()
	svc := newTestService(expenseRepo, ruleRepo, userRepo, settingsRepo, rateProvider, ExpenseServiceOptions{})

	_, err := svc.Decide(context.Background(), DecisionRequest{
		ExpenseID:  "missing",
		ApproverID: "mgr-1",
		Decision:   entity.DecisionApproved,
	})
	if !errors.Is(err, port.ErrExpenseNotFound) {
		t.Errorf("Decide() error = %v, want ErrExpenseNotFound", err)
	}
}
