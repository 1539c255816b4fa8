package soda

import (
	"errors"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			want: "soda client error (status 404): 404 Not Found",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			want: "soda network error (status 0): request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("timeout")
	err := &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: inner}

	if !errors.Is(err, inner) {
		t.Errorf("errors.Is should find the wrapped error")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) {
		t.Errorf("errors.As should extract *APIError")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
