package entity

import "time"

// SystemActorID is the sentinel approver identity recorded for
// system-initiated actions such as auto-approval.
const SystemActorID = "system"

// HistoryEntry is a single append-only record of an action taken on an expense
type HistoryEntry struct {
	ApproverID string    `json:"approver_id"`
	Decision   Decision  `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
	Comment    string    `json:"comment,omitempty"`
}

// Expense represents a single submitted expense claim.
//
// The approver chain and the normalized amount are fixed at submission
// time and never change for the life of the claim. Status, the current
// approver index, the timestamps and the history are mutated only by the
// approval engine.
type Expense struct {
	ID          string   `json:"id"`
	EmployeeID  string   `json:"employee_id"`
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Status      Status   `json:"status"`

	// Approvers is the ordered chain fixed at submission. Each expense
	// owns an independent copy; it is never a live reference into a
	// rule's approver list.
	Approvers []string `json:"approvers"`

	// CurrentIndex is the position of the current approver within the
	// chain, or -1 when the expense is not awaiting anyone. An explicit
	// index avoids ambiguity when a chain contains duplicate identities.
	CurrentIndex int `json:"current_index"`

	History []HistoryEntry `json:"history"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`

	ConvertedAmount   float64 `json:"converted_amount"`
	ConvertedCurrency string  `json:"converted_currency"`
}

// CurrentApprover returns the identity of the approver the expense is
// waiting on, or false when there is none.
func (e *Expense) CurrentApprover() (string, bool) {
	if e.CurrentIndex < 0 || e.CurrentIndex >= len(e.Approvers) {
		return "", false
	}
	return e.Approvers[e.CurrentIndex], true
}

// AppendHistory adds an entry to the expense's append-only history
func (e *Expense) AppendHistory(approverID string, decision Decision, at time.Time, comment string) {
	e.History = append(e.History, HistoryEntry{
		ApproverID: approverID,
		Decision:   decision,
		Timestamp:  at,
		Comment:    comment,
	})
}

// ApprovedCount returns the number of history entries recording an approval
func (e *Expense) ApprovedCount() int {
	count := 0
	for _, h := range e.History {
		if h.Decision == DecisionApproved {
			count++
		}
	}
	return count
}
