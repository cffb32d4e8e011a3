package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// RuleService manages the approval rule set. Rule edits only affect
// future decisions; in-flight expenses keep the chain fixed at their
// submission.
type RuleService interface {
	Create(ctx context.Context, rule entity.Rule) (*entity.Rule, error)
	Update(ctx context.Context, rule entity.Rule) (*entity.Rule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Get(ctx context.Context, id string) (*entity.Rule, error)
	List(ctx context.Context) ([]entity.Rule, error)
}

type ruleServiceImpl struct {
	ruleRepo port.RuleRepository
	userRepo port.UserRepository
	logger   Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo port.RuleRepository, userRepo port.UserRepository, logger Logger) RuleService {
	return &ruleServiceImpl{
		ruleRepo: ruleRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *ruleServiceImpl) validate(ctx context.Context, rule *entity.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if rule.Category == "" {
		return fmt.Errorf("rule category is required")
	}
	if !rule.RuleType.IsValid() {
		return fmt.Errorf("unknown rule type %q", rule.RuleType)
	}
	if rule.RuleType == entity.RuleTypePercentage && (rule.Percentage < 1 || rule.Percentage > 100) {
		return fmt.Errorf("percentage must be between 1 and 100, got %d", rule.Percentage)
	}
	if rule.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	for _, approverID := range rule.Approvers {
		if _, err := s.userRepo.GetByID(ctx, approverID); err != nil {
			return fmt.Errorf("approver %s: %w", approverID, err)
		}
	}
	return nil
}

// Create validates and stores a new approval rule
func (s *ruleServiceImpl) Create(ctx context.Context, rule entity.Rule) (*entity.Rule, error) {
	if err := s.validate(ctx, &rule); err != nil {
		return nil, err
	}

	rule.ID = uuid.NewString()
	if err := s.ruleRepo.Create(ctx, &rule); err != nil {
		s.logger.Error("Failed to create rule", "error", err, "name", rule.Name)
		return nil, err
	}

	s.logger.Info("Rule created", "id", rule.ID, "name", rule.Name, "type", rule.RuleType)
	return &rule, nil
}

// Update validates and replaces an existing rule
func (s *ruleServiceImpl) Update(ctx context.Context, rule entity.Rule) (*entity.Rule, error) {
	if _, err := s.ruleRepo.GetByID(ctx, rule.ID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &rule); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Update(ctx, &rule); err != nil {
		s.logger.Error("Failed to update rule", "error", err, "id", rule.ID)
		return nil, err
	}

	s.logger.Info("Rule updated", "id", rule.ID, "name", rule.Name)
	return &rule, nil
}

// SetActive flips a rule's active flag. Inactive rules never match.
func (s *ruleServiceImpl) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.ruleRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.ruleRepo.SetActive(ctx, id, active); err != nil {
		s.logger.Error("Failed to set rule active flag", "error", err, "id", id)
		return err
	}

	s.logger.Info("Rule active flag set", "id", id, "active", active)
	return nil
}

// Get retrieves a rule by ID
func (s *ruleServiceImpl) Get(ctx context.Context, id string) (*entity.Rule, error) {
	return s.ruleRepo.GetByID(ctx, id)
}

// List retrieves the full rule set
func (s *ruleServiceImpl) List(ctx context.Context) ([]entity.Rule, error) {
	return s.ruleRepo.List(ctx)
}
