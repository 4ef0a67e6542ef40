package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

const maxBodyBytes = 1 << 20

// EnvelopeError is a well-formed response whose success flag was false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

// DecodeEnvelope reads a {success, message, ...} body into target and closes
// it. A non-2xx status becomes an error carrying the status. A body with
// success=false becomes *EnvelopeError; target is still filled so callers can
// inspect partial data.
func DecodeEnvelope(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body)
	}

	var head struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	if !head.Success {
		return &EnvelopeError{Message: head.Message}
	}
	return nil
}

// statusError keeps the envelope message when the body has one.
func statusError(status int, body []byte) error {
	var head struct {
		Message string `json:"message"`
	}
	msg := string(body)
	if json.Unmarshal(body, &head) == nil && head.Message != "" {
		msg = head.Message
	}
	sentinel := apperrors.ErrInternal
	if IsClientError(status) {
		sentinel = apperrors.ErrInvalidInput
	}
	return &apperrors.AppError{
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: msg,
		Status:  status,
		Err:     sentinel,
	}
}

// IsClientError reports whether status is 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
