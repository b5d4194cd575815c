package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyMessage is returned for empty or whitespace-only messages.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMessageTooLong is returned when the message exceeds the configured length.
	ErrMessageTooLong = errors.New("message too long")
	// ErrTopKOutOfRange is returned when top_k is outside the accepted bounds.
	ErrTopKOutOfRange = errors.New("top_k out of range")
)

// ValidationError describes a rejected chat request. It unwraps to one of the
// sentinel errors above.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ChatRequest is the inbound request body for POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
	TopK    *int   `json:"top_k,omitempty"`
}

// Limits holds the bounds applied to chat requests.
type Limits struct {
	MaxMessageChars int
	DefaultTopK     int
	MinTopK         int
	MaxTopK         int
}

// Validate checks the request against limits and returns the effective top_k.
// A missing top_k resolves to limits.DefaultTopK. Clamping to the catalog size
// is left to the caller.
func (r *ChatRequest) Validate(limits Limits) (int, error) {
	if strings.TrimSpace(r.Message) == "" {
		return 0, &ValidationError{Err: ErrEmptyMessage, Detail: "Empty message"}
	}
	if limits.MaxMessageChars > 0 && utf8.RuneCountInString(r.Message) > limits.MaxMessageChars {
		return 0, &ValidationError{
			Err:    ErrMessageTooLong,
			Detail: fmt.Sprintf("Message too long (max %d chars)", limits.MaxMessageChars),
		}
	}
	if r.TopK == nil {
		return limits.DefaultTopK, nil
	}
	k := *r.TopK
	if k < limits.MinTopK || k > limits.MaxTopK {
		return 0, &ValidationError{
			Err:    ErrTopKOutOfRange,
			Detail: fmt.Sprintf("top_k must be between %d and %d", limits.MinTopK, limits.MaxTopK),
		}
	}
	return k, nil
}
