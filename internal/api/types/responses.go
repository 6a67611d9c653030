package types

// APIResponse is the envelope of every JSON response. Failures carry a flat
// error message plus its stable code.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// WebhookAck is returned for every processed notification batch.
type WebhookAck struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}

type WebhookStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Webhook   string `json:"webhook"`
}
