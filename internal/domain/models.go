package domain

import "time"

// Reply tags; each one keys a decoration in the emoji cache.
const (
	TagLoginOK        = "login_ok"
	TagLoginFail      = "login_fail"
	TagStatusCodeFail = "status_code_fail"
	TagResponseFail   = "response_fail"
)

// Report is one rendered probe reply, shared by every command surface.
type Report struct {
	Outcome    string    `json:"outcome"`
	Tag        string    `json:"tag"`
	Text       string    `json:"reply"`
	HTTPStatus int       `json:"http_status,omitempty"`
	LatencyMS  float64   `json:"latency_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}
