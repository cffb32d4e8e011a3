package approval

import (
	"sort"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// MatchRules selects the approval rules applicable to an expense of the
// given category and normalized amount.
//
// A rule matches iff it is active, its category is the wildcard or equals
// the expense category, and the normalized amount is at or above the
// rule's threshold. The threshold filter applies uniformly to both rule
// types. Matches are ordered by ascending priority, then by rule ID so
// ties break deterministically. An empty result is valid.
func MatchRules(category entity.Category, normalizedAmount float64, rules []entity.Rule) []entity.Rule {
	var matched []entity.Rule
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if !rule.Category.Matches(category) {
			continue
		}
		if normalizedAmount < rule.Threshold {
			continue
		}
		matched = append(matched, rule)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	return matched
}

// firstPercentageRule returns the highest-priority active percentage rule
// whose category applies to the expense, if one exists. The threshold
// filter deliberately does not apply here: percentage mode is selected by
// category alone once a decision is being processed.
func firstPercentageRule(category entity.Category, rules []entity.Rule) (entity.Rule, bool) {
	var candidates []entity.Rule
	for _, rule := range rules {
		if !rule.IsActive || rule.RuleType != entity.RuleTypePercentage {
			continue
		}
		if !rule.Category.Matches(category) {
			continue
		}
		candidates = append(candidates, rule)
	}
	if len(candidates) == 0 {
		return entity.Rule{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates[0], true
}
