package approval

import (
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// requiredApprovals computes the number of approvals a percentage rule
// demands over a chain, using ceiling rounding: a 60% rule over 3
// approvers requires 2, and over 2 approvers also requires 2.
func requiredApprovals(chainLength, percentage int) int {
	return (chainLength*percentage + 99) / 100
}

// ApplyDecision applies a single approver's decision to a pending
// expense and recomputes its status, current approver and history.
//
// The expense must be pending; anything else fails with
// ErrInvalidTransition and leaves the expense unmodified. The decision
// is recorded in history regardless of outcome. A rejection is terminal
// immediately. An approval either completes the expense, advances the
// chain, or leaves it pending as a valid steady state when a percentage
// rule's required count is not yet reached at the end of the chain.
//
// Whether the acting approver is actually the current approver is not
// checked here; that gate belongs to the caller's authorization policy.
func ApplyDecision(expense *entity.Expense, approverID string, decision entity.Decision, comment string, rules []entity.Rule, now time.Time) error {
	if !decision.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if expense.Status != entity.StatusPending {
		return fmt.Errorf("%w: expense %s is %s", ErrInvalidTransition, expense.ID, expense.Status)
	}

	expense.AppendHistory(approverID, decision, now, comment)

	if decision == entity.DecisionRejected {
		expense.Status = entity.StatusRejected
		expense.RejectedAt = &now
		expense.CurrentIndex = -1
		return nil
	}

	if rule, ok := firstPercentageRule(expense.Category, rules); ok {
		applyPercentageApproval(expense, rule, now)
		return nil
	}

	applySequentialApproval(expense, now)
	return nil
}

// applyPercentageApproval handles approvals under a percentage rule: the
// expense approves once enough of the chain has approved, regardless of
// strict order exhaustion.
func applyPercentageApproval(expense *entity.Expense, rule entity.Rule, now time.Time) {
	required := requiredApprovals(len(expense.Approvers), rule.Percentage)
	if expense.ApprovedCount() >= required {
		expense.Status = entity.StatusApproved
		expense.ApprovedAt = &now
		expense.CurrentIndex = -1
		return
	}

	// Not enough approvals yet. Advance to the next approver when one
	// exists; when the chain is exhausted the expense stays pending,
	// awaiting further approvals, with the current approver unchanged.
	if expense.CurrentIndex+1 < len(expense.Approvers) {
		expense.CurrentIndex++
	}
}

// applySequentialApproval handles approvals with no percentage rule in
// play: every approver must approve in chain order, and the last
// approval completes the expense. An empty chain approves immediately.
func applySequentialApproval(expense *entity.Expense, now time.Time) {
	if expense.CurrentIndex+1 < len(expense.Approvers) {
		expense.CurrentIndex++
		return
	}

	expense.Status = entity.StatusApproved
	expense.ApprovedAt = &now
	expense.CurrentIndex = -1
}
