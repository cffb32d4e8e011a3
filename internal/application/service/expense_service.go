package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrNotCurrentApprover is returned when the current-approver policy is
// enforced and the acting user is not the approver the expense is
// waiting on.
var ErrNotCurrentApprover = errors.New("acting user is not the current approver")

// SubmitRequest carries the caller-supplied fields of a new expense claim
type SubmitRequest struct {
	EmployeeID  string
	Amount      float64
	Currency    string
	Category    entity.Category
	Description string
	Date        string
}

// DecisionRequest carries a single approver action on a pending expense
type DecisionRequest struct {
	ExpenseID  string
	ApproverID string
	Decision   entity.Decision
	Comment    string
}

// ExpenseService owns expense submission and the approval lifecycle
type ExpenseService interface {
	Submit(ctx context.Context, req SubmitRequest) (*entity.Expense, error)
	Decide(ctx context.Context, req DecisionRequest) (*entity.Expense, error)
	Get(ctx context.Context, id string) (*entity.Expense, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Expense, error)
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error)
	ListPendingFor(ctx context.Context, approverID string) ([]*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	ruleRepo     port.RuleRepository
	userRepo     port.UserRepository
	settingsRepo port.SettingsRepository
	rateProvider port.RateProvider
	txManager    port.TransactionManager
	logger       Logger

	// enforceCurrentApprover gates Decide on the acting user matching
	// the expense's current approver. The engine itself is permissive;
	// this is the service-level authorization policy.
	enforceCurrentApprover bool

	// locks serializes decisions per expense identity so two concurrent
	// approvals cannot both read the same pending state
	locks keyedMutex

	now func() time.Time
}

// ExpenseServiceOptions tunes ExpenseService policy
type ExpenseServiceOptions struct {
	EnforceCurrentApprover bool
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	ruleRepo port.RuleRepository,
	userRepo port.UserRepository,
	settingsRepo port.SettingsRepository,
	rateProvider port.RateProvider,
	txManager port.TransactionManager,
	logger Logger,
	opts ExpenseServiceOptions,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:            expenseRepo,
		ruleRepo:               ruleRepo,
		userRepo:               userRepo,
		settingsRepo:           settingsRepo,
		rateProvider:           rateProvider,
		txManager:              txManager,
		logger:                 logger,
		enforceCurrentApprover: opts.EnforceCurrentApprover,
		now:                    time.Now,
	}
}

// Submit creates a new expense claim: the amount is normalized into the
// company currency, the approver chain is fixed, and the claim either
// auto-approves or is left pending with the chain attached.
func (s *expenseServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.Expense, error) {
	employee, err := s.userRepo.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if employee.Status != entity.UserStatusActive {
		return nil, fmt.Errorf("employee %s is inactive", employee.ID)
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load company settings: %w", err)
	}

	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load approval rules: %w", err)
	}

	roster, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	now := s.now()
	converted := s.normalizeAmount(ctx, req.Amount, req.Currency, settings.DefaultCurrency)

	expense := &entity.Expense{
		ID:                uuid.NewString(),
		EmployeeID:        req.EmployeeID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Category:          req.Category,
		Description:       req.Description,
		Date:              req.Date,
		Status:            entity.StatusPending,
		Approvers:         approval.BuildChain(converted, req.Category, rules, roster),
		CurrentIndex:      -1,
		SubmittedAt:       now,
		ConvertedAmount:   converted,
		ConvertedCurrency: settings.DefaultCurrency,
	}
	if len(expense.Approvers) > 0 {
		expense.CurrentIndex = 0
	}

	if approval.ShouldAutoApprove(converted, req.Category, rules, settings.AutoApprovalLimit) {
		approval.AutoApprove(expense, now)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.expenseRepo.Create(txCtx, expense)
	})
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "employee_id", req.EmployeeID)
		return nil, err
	}

	s.logger.Info("Expense submitted",
		"id", expense.ID,
		"employee_id", expense.EmployeeID,
		"amount", expense.Amount,
		"currency", expense.Currency,
		"converted_amount", expense.ConvertedAmount,
		"status", expense.Status,
		"approvers", len(expense.Approvers))
	return expense, nil
}

// normalizeAmount converts the submitted amount into the company base
// currency. When the conversion is unavailable the original amount is
// kept as the degraded-mode fallback; the decision is logged, never
// silent.
func (s *expenseServiceImpl) normalizeAmount(ctx context.Context, amount float64, from, base string) float64 {
	rates, err := s.rateProvider.Rates(ctx, base)
	if err != nil {
		s.logger.Warn("Rate table unavailable, keeping submitted amount",
			"error", err, "from", from, "to", base)
		return amount
	}

	converted, err := approval.Convert(amount, from, base, rates)
	if err != nil {
		s.logger.Warn("Currency conversion unavailable, keeping submitted amount",
			"error", err, "from", from, "to", base)
		return amount
	}
	return converted
}

// Decide applies a single approver's decision to a pending expense.
// Decisions on the same expense identity are serialized; decisions on
// different expenses proceed in parallel.
func (s *expenseServiceImpl) Decide(ctx context.Context, req DecisionRequest) (*entity.Expense, error) {
	unlock := s.locks.lock(req.ExpenseID)
	defer unlock()

	expense, err := s.expenseRepo.GetByID(ctx, req.ExpenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}

	if s.enforceCurrentApprover && expense.Status == entity.StatusPending {
		if current, ok := expense.CurrentApprover(); !ok || current != req.ApproverID {
			return nil, fmt.Errorf("%w: expense %s", ErrNotCurrentApprover, expense.ID)
		}
	}

	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load approval rules: %w", err)
	}

	if err := approval.ApplyDecision(expense, req.ApproverID, req.Decision, req.Comment, rules, s.now()); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.expenseRepo.Update(txCtx, expense)
	})
	if err != nil {
		s.logger.Error("Failed to persist decision", "error", err, "expense_id", expense.ID)
		return nil, err
	}

	s.logger.Info("Decision applied",
		"expense_id", expense.ID,
		"approver_id", req.ApproverID,
		"decision", req.Decision,
		"status", expense.Status)
	return expense, nil
}

// Get retrieves an expense by ID
func (s *expenseServiceImpl) Get(ctx context.Context, id string) (*entity.Expense, error) {
	return s.expenseRepo.GetByID(ctx, id)
}

// List retrieves a paginated list of expenses
func (s *expenseServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Expense, error) {
	return s.expenseRepo.List(ctx, limit, offset)
}

// ListByEmployee retrieves a paginated list of one employee's expenses
func (s *expenseServiceImpl) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	return s.expenseRepo.ListByEmployee(ctx, employeeID, limit, offset)
}

// ListPendingFor retrieves the pending expenses waiting on an approver
func (s *expenseServiceImpl) ListPendingFor(ctx context.Context, approverID string) ([]*entity.Expense, error) {
	return s.expenseRepo.ListPendingForApprover(ctx, approverID)
}

// keyedMutex hands out one mutex per key so operations on distinct keys
// never contend
type keyedMutex struct {
	mu sync.Map // key -> *sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	value, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := value.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
