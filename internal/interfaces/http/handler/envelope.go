package handler

import "github.com/erp/quoting/internal/interfaces/http/dto"

// Envelope documents the success body every endpoint returns
type Envelope[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorEnvelope documents the failure body, including the request id echoed from X-Request-ID
type ErrorEnvelope struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
