package metrics

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOpenStackError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "unauthorized",
			err:      gophercloud.ErrUnexpectedResponseCode{Actual: 401},
			expected: ErrorTypeAuth,
		},
		{
			name:     "forbidden",
			err:      gophercloud.ErrUnexpectedResponseCode{Actual: 403},
			expected: ErrorTypeAuth,
		},
		{
			name:     "rate limited",
			err:      gophercloud.ErrUnexpectedResponseCode{Actual: 429},
			expected: ErrorTypeRateLimit,
		},
		{
			name:     "server error",
			err:      gophercloud.ErrUnexpectedResponseCode{Actual: 503},
			expected: ErrorTypeServerError,
		},
		{
			name:     "client error",
			err:      gophercloud.ErrUnexpectedResponseCode{Actual: 409},
			expected: ErrorTypeClientError,
		},
		{
			name:     "wrapped response code",
			err:      errors.Wrap(gophercloud.ErrUnexpectedResponseCode{Actual: 500}, "create project"),
			expected: ErrorTypeServerError,
		},
		{
			name:     "timeout by message",
			err:      errors.New("context deadline exceeded"),
			expected: ErrorTypeTimeout,
		},
		{
			name:     "network by message",
			err:      errors.New("dial tcp: connection refused"),
			expected: ErrorTypeNetwork,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			expected: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ClassifyOpenStackError(tt.err))
		})
	}
}

func TestClassifyCloudflareError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "timeout by message",
			err:      errors.New("request timeout"),
			expected: ErrorTypeTimeout,
		},
		{
			name:     "network by message",
			err:      errors.New("lookup api.cloudflare.com: no such host"),
			expected: ErrorTypeNetwork,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			expected: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ClassifyCloudflareError(tt.err))
		})
	}
}
