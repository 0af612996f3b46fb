package models

// ActionResponse is the 2xx body of write endpoints.
// A missing success field means the action went through.
type ActionResponse struct {
	Message        string   `json:"message"`
	Success        *bool    `json:"success,omitempty"`
	RequiredAmount *float64 `json:"required_amount,omitempty"`
	CurrentBalance *float64 `json:"current_balance,omitempty"`
}

// Succeeded reports whether the backend accepted the action
func (r ActionResponse) Succeeded() bool {
	return r.Success == nil || *r.Success
}
