// Package dto defines the request and response shapes of the HTTP surface.
package dto

// APIResponse is the envelope every endpoint returns. Data carries the
// operation payload on success; Error carries an ErrorDetail on failure.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail pairs the machine-readable business error code with optional
// per-field details from validation.
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}
