package entity

// Category is an expense category label. The wildcard CategoryAny
// matches every category.
type Category string

// CategoryAny is the wildcard category used by rules that apply to all expenses
const CategoryAny Category = "Any"

// Matches reports whether a rule category applies to an expense category.
// The receiver is the rule side, so the wildcard is only honored there.
func (c Category) Matches(expenseCategory Category) bool {
	return c == CategoryAny || c == expenseCategory
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// RuleType distinguishes the two approval modes a rule can define
type RuleType string

const (
	// RuleTypeThreshold rules require every approver in the chain to
	// approve sequentially.
	RuleTypeThreshold RuleType = "threshold"

	// RuleTypePercentage rules approve once a configured fraction of
	// the chain has approved.
	RuleTypePercentage RuleType = "percentage"
)

// IsValid returns true if the rule type is known
func (t RuleType) IsValid() bool {
	return t == RuleTypeThreshold || t == RuleTypePercentage
}

// Rule is a company-defined approval rule.
//
// The threshold is compared against the expense's normalized amount for
// both rule types; the percentage is meaningful only for percentage
// rules. Inactive rules never match.
type Rule struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	RuleType    RuleType `json:"rule_type"`
	Threshold   float64  `json:"threshold"`
	Percentage  int      `json:"percentage,omitempty"`
	Approvers   []string `json:"approvers"`
	IsActive    bool     `json:"is_active"`
	Priority    int      `json:"priority"`
	Description string   `json:"description,omitempty"`
}
