package types

// PageInfo mirrors pagination.Info for response payloads.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Data       any       `json:"data,omitempty"`
	Count      *int      `json:"count,omitempty"`
	Total      *int64    `json:"total,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
	Code       string    `json:"code,omitempty"`
	Details    any       `json:"details,omitempty"`
}
