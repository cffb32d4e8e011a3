package approval

import (
	"sort"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// BuildChain derives the ordered approver chain for an expense.
//
// When at least one rule matches, the chain is exactly the approver list
// of the first matched rule; rules are never merged. When no rule
// matches, the fallback is a single-approver chain holding the first
// active manager in the roster ordered by identity. With no manager the
// chain is empty, which makes the expense a candidate for auto-approval.
//
// The returned slice is always an independent copy, so later rule edits
// cannot retroactively alter an in-flight expense's chain.
func BuildChain(normalizedAmount float64, category entity.Category, rules []entity.Rule, roster []entity.User) []string {
	matched := MatchRules(category, normalizedAmount, rules)
	if len(matched) > 0 {
		chain := make([]string, len(matched[0].Approvers))
		copy(chain, matched[0].Approvers)
		return chain
	}

	var managers []entity.User
	for _, u := range roster {
		if u.IsActiveManager() {
			managers = append(managers, u)
		}
	}
	if len(managers) == 0 {
		return []string{}
	}

	sort.Slice(managers, func(i, j int) bool {
		return managers[i].ID < managers[j].ID
	})

	return []string{managers[0].ID}
}
