package entity

// Settings holds company-wide approval configuration
type Settings struct {
	CompanyName       string  `json:"company_name"`
	DefaultCurrency   string  `json:"default_currency"`
	Country           string  `json:"country"`
	AutoApprovalLimit float64 `json:"auto_approval_limit"`
}
