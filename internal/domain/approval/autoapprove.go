package approval

import (
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// ShouldAutoApprove decides whether a newly submitted expense bypasses
// human review: true iff no rule matches and the normalized amount is
// within the company's auto-approval limit.
//
// The decision is independent of any fallback approver chain; a
// fallback single-manager chain is simply discarded when the expense
// auto-approves.
func ShouldAutoApprove(normalizedAmount float64, category entity.Category, rules []entity.Rule, autoApprovalLimit float64) bool {
	if len(MatchRules(category, normalizedAmount, rules)) > 0 {
		return false
	}
	return normalizedAmount <= autoApprovalLimit
}

// AutoApprove finalizes an expense without human review: one history
// entry attributed to the system actor, status approved, approval
// timestamp stamped, no current approver.
func AutoApprove(expense *entity.Expense, now time.Time) {
	expense.AppendHistory(entity.SystemActorID, entity.DecisionAutoApproved, now, "Auto-approved based on company rules")
	expense.Status = entity.StatusApproved
	expense.ApprovedAt = &now
	expense.CurrentIndex = -1
}
