package vkapi

import "fmt"

// APIError is the platform's typed error envelope. The client raises it
// instead of returning a silent empty result; collectors decide whether to
// suppress it.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// Well-known platform error codes.
const (
	ErrCodeAuthFailed      = 5
	ErrCodeTooManyRequests = 6
	ErrCodeAccessDenied    = 15
)
