package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository.
//
// The approver chain and history are stored as JSON columns so every
// expense row owns its own copy, independent of the rule that produced
// the chain.
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, employee_id, amount, currency, category, description, expense_date,
	status, approvers, current_index, history, submitted_at, approved_at,
	rejected_at, converted_amount, converted_currency
`

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	approvers, history, err := marshalChainAndHistory(expense)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		expense.ID,
		expense.EmployeeID,
		expense.Amount,
		expense.Currency,
		string(expense.Category),
		expense.Description,
		expense.Date,
		string(expense.Status),
		approvers,
		expense.CurrentIndex,
		history,
		expense.SubmittedAt,
		nullableTime(expense.ApprovedAt),
		nullableTime(expense.RejectedAt),
		expense.ConvertedAmount,
		expense.ConvertedCurrency,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.String("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", port.ErrExpenseNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// Update persists the mutable fields of an expense. The chain, amounts
// and submission data are immutable after creation and not part of the
// statement.
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	_, history, err := marshalChainAndHistory(expense)
	if err != nil {
		return err
	}

	query := `
		UPDATE expenses
		SET status = ?, current_index = ?, history = ?, approved_at = ?, rejected_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		string(expense.Status),
		expense.CurrentIndex,
		history,
		nullableTime(expense.ApprovedAt),
		nullableTime(expense.RejectedAt),
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.String("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", port.ErrExpenseNotFound, expense.ID)
	}

	return nil
}

// List retrieves a paginated list of expenses, newest first
func (r *ExpenseRepository) List(ctx context.Context, limit, offset int) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses ORDER BY submitted_at DESC LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListByEmployee retrieves one employee's expenses, newest first
func (r *ExpenseRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE employee_id = ? ORDER BY submitted_at DESC LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, employeeID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list expenses by employee", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListPendingForApprover retrieves the pending expenses whose current
// approver matches the given identity. The current approver is derived
// from the stored chain and index, so the filter happens after scanning.
func (r *ExpenseRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE status = ? ORDER BY submitted_at ASC`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, string(entity.StatusPending))
	if err != nil {
		r.logger.Error("Failed to list pending expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending expenses: %w", err)
	}
	defer rows.Close()

	pending, err := collectExpenses(rows)
	if err != nil {
		return nil, err
	}

	var matched []*entity.Expense
	for _, e := range pending {
		if current, ok := e.CurrentApprover(); ok && current == approverID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func marshalChainAndHistory(expense *entity.Expense) (string, string, error) {
	approvers, err := json.Marshal(expense.Approvers)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal approvers: %w", err)
	}
	history, err := json.Marshal(expense.History)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal history: %w", err)
	}
	return string(approvers), string(history), nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		expense              entity.Expense
		category, status     string
		approvers, history   string
		approvedAt, rejected sql.NullTime
	)

	err := row.Scan(
		&expense.ID,
		&expense.EmployeeID,
		&expense.Amount,
		&expense.Currency,
		&category,
		&expense.Description,
		&expense.Date,
		&status,
		&approvers,
		&expense.CurrentIndex,
		&history,
		&expense.SubmittedAt,
		&approvedAt,
		&rejected,
		&expense.ConvertedAmount,
		&expense.ConvertedCurrency,
	)
	if err != nil {
		return nil, err
	}

	expense.Category = entity.Category(category)
	expense.Status = entity.Status(status)
	if err := json.Unmarshal([]byte(approvers), &expense.Approvers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approvers: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &expense.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if approvedAt.Valid {
		expense.ApprovedAt = &approvedAt.Time
	}
	if rejected.Valid {
		expense.RejectedAt = &rejected.Time
	}

	return &expense, nil
}

func collectExpenses(rows *sql.Rows) ([]*entity.Expense, error) {
	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
