package port

import (
	"context"
	"errors"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Not-found sentinels. Repositories surface a missing identity as one of
// these rather than defaulting to a guessed entity.
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrRuleNotFound    = errors.New("approval rule not found")
	ErrUserNotFound    = errors.New("user not found")
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	List(ctx context.Context, limit, offset int) ([]*entity.Expense, error)
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]*entity.Expense, error)
}

// RuleRepository defines read/write access to the approval rule set.
// The approval engine only ever reads it.
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.Rule) error
	GetByID(ctx context.Context, id string) (*entity.Rule, error)
	Update(ctx context.Context, rule *entity.Rule) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context) ([]entity.Rule, error)
}

// UserRepository defines read/write access to the company roster.
// The approval engine only ever reads it.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	List(ctx context.Context) ([]entity.User, error)
}

// SettingsRepository defines access to the company settings record
type SettingsRepository interface {
	Get(ctx context.Context) (*entity.Settings, error)
	Update(ctx context.Context, settings *entity.Settings) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
