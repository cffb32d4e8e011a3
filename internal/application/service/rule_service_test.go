package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

func TestRuleService_CreateValidation(t *testing.T) {
	_, ruleRepo, userRepo, _, _ := testFixtures()
	svc := NewRuleService(ruleRepo, userRepo, nopLogger{})

	tests := []struct {
		name          string
		rule          entity.Rule
		errorContains string
	}{
		{
			name: "valid threshold rule",
			rule: entity.Rule{Name: "Travel > $500", Category: "Travel",
				RuleType: entity.RuleTypeThreshold, Threshold: 500, Approvers: []string{"mgr-1"}},
		},
		{
			name: "valid percentage rule",
			rule: entity.Rule{Name: "Majority", Category: entity.CategoryAny,
				RuleType: entity.RuleTypePercentage, Percentage: 60, Approvers: []string{"mgr-1", "admin-1"}},
		},
		{
			name:          "missing name",
			rule:          entity.Rule{Category: "Travel", RuleType: entity.RuleTypeThreshold},
			errorContains: "name is required",
		},
		{
			name: "unknown rule type",
			rule: entity.Rule{Name: "Odd", Category: "Travel", RuleType: "quorum"},
			errorContains: "unknown rule type",
		},
		{
			name: "percentage out of range",
			rule: entity.Rule{Name: "Over", Category: "Travel",
				RuleType: entity.RuleTypePercentage, Percentage: 120},
			errorContains: "between 1 and 100",
		},
		{
			name: "unknown approver",
			rule: entity.Rule{Name: "Ghost", Category: "Travel",
				RuleType: entity.RuleTypeThreshold, Approvers: []string{"ghost"}},
			errorContains: "approver ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := svc.Create(context.Background(), tt.rule)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
		})
	}
}

func TestRuleService_UpdateUnknownRule(t *testing.T) {
	_, ruleRepo, userRepo, _, _ := testFixtures()
	svc := NewRuleService(ruleRepo, userRepo, nopLogger{})

	_, err := svc.Update(context.Background(), entity.Rule{
		ID: "missing", Name: "X", Category: "Travel", RuleType: entity.RuleTypeThreshold,
	})
	assert.ErrorIs(t, err, port.ErrRuleNotFound)
}

func TestRuleService_SetActiveUnknownRule(t *testing.T) {
	_, ruleRepo, userRepo, _, _ := testFixtures()
	svc := NewRuleService(ruleRepo, userRepo, nopLogger{})

	err := svc.SetActive(context.Background(), "missing", false)
	assert.ErrorIs(t, err, port.ErrRuleNotFound)
}
