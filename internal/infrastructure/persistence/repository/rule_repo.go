package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	id, name, category, rule_type, threshold, percentage, approvers,
	is_active, priority, description
`

// Create inserts a new approval rule
func (r *RuleRepository) Create(ctx context.Context, rule *entity.Rule) error {
	approvers, err := json.Marshal(rule.Approvers)
	if err != nil {
		return fmt.Errorf("failed to marshal approvers: %w", err)
	}

	query := `
		INSERT INTO approval_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		string(rule.Category),
		string(rule.RuleType),
		rule.Threshold,
		rule.Percentage,
		string(approvers),
		rule.IsActive,
		rule.Priority,
		rule.Description,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.String("id", rule.ID), zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE id = ?`

	rule, err := scanRule(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", port.ErrRuleNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// Update replaces a rule's fields
func (r *RuleRepository) Update(ctx context.Context, rule *entity.Rule) error {
	approvers, err := json.Marshal(rule.Approvers)
	if err != nil {
		return fmt.Errorf("failed to marshal approvers: %w", err)
	}

	query := `
		UPDATE approval_rules
		SET name = ?, category = ?, rule_type = ?, threshold = ?, percentage = ?,
			approvers = ?, is_active = ?, priority = ?, description = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		rule.Name,
		string(rule.Category),
		string(rule.RuleType),
		rule.Threshold,
		rule.Percentage,
		string(approvers),
		rule.IsActive,
		rule.Priority,
		rule.Description,
		rule.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update rule", zap.String("id", rule.ID), zap.Error(err))
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowAffected(result, port.ErrRuleNotFound, rule.ID)
}

// SetActive flips a rule's active flag
func (r *RuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"UPDATE approval_rules SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		r.logger.Error("Failed to set rule active flag", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to set rule active flag: %w", err)
	}

	return requireRowAffected(result, port.ErrRuleNotFound, id)
}

// List retrieves the full rule set ordered by priority
func (r *RuleRepository) List(ctx context.Context) ([]entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules ORDER BY priority ASC, id ASC`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []entity.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (*entity.Rule, error) {
	var (
		rule               entity.Rule
		category, ruleType string
		approvers          string
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&category,
		&ruleType,
		&rule.Threshold,
		&rule.Percentage,
		&approvers,
		&rule.IsActive,
		&rule.Priority,
		&rule.Description,
	)
	if err != nil {
		return nil, err
	}

	rule.Category = entity.Category(category)
	rule.RuleType = entity.RuleType(ruleType)
	if err := json.Unmarshal([]byte(approvers), &rule.Approvers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approvers: %w", err)
	}

	return &rule, nil
}

func requireRowAffected(result sql.Result, notFound error, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.RuleRepository = (*RuleRepository)(nil)
