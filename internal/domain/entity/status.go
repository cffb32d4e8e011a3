package entity

// Status represents the lifecycle state of an expense
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a valid expense status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Decision represents a single approver action recorded in history
type Decision string

const (
	DecisionApproved     Decision = "approved"
	DecisionRejected     Decision = "rejected"
	DecisionAutoApproved Decision = "auto_approved"
)

// IsValid returns true if the decision is one an approver may submit.
// Auto-approval is reserved for the system actor and is not a valid
// approver-submitted decision.
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}
