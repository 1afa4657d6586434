package model

// Redaksi is a canned reply text keyed by service code.
type Redaksi struct {
	ID          int    `json:"id,omitempty"`
	Category    string `json:"category"`
	ServiceCode string `json:"service_code"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}
