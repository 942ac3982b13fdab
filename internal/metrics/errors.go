package metrics

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cloudflare/cloudflare-go/v6"
	"github.com/gophercloud/gophercloud/v2"
)

// Error type constants for metrics labels.
const (
	ErrorTypeAuth        = "auth"
	ErrorTypeRateLimit   = "rate_limit"
	ErrorTypeServerError = "server_error"
	ErrorTypeClientError = "client_error"
	ErrorTypeTimeout     = "timeout"
	ErrorTypeNetwork     = "network"
	ErrorTypeUnknown     = "unknown"
)

// ClassifyCloudflareError classifies an error from the Cloudflare API for
// metrics labeling. Returns an empty string for nil errors.
func ClassifyCloudflareError(err error) string {
	if err == nil {
		return ""
	}

	// cloudflare.Error is an alias to apierror.Error in cloudflare-go v6
	var apiErr *cloudflare.Error
	if errors.As(err, &apiErr) {
		return classifyByStatusCode(apiErr.StatusCode)
	}

	return classifyByErrorMessage(err.Error())
}

// ClassifyOpenStackError classifies an error from the OpenStack control
// plane for metrics labeling. Returns an empty string for nil errors.
func ClassifyOpenStackError(err error) string {
	if err == nil {
		return ""
	}

	var respErr gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &respErr) {
		return classifyByStatusCode(respErr.Actual)
	}

	return classifyByErrorMessage(err.Error())
}

func classifyByStatusCode(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= http.StatusInternalServerError && statusCode < 600:
		return ErrorTypeServerError
	case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError:
		return ErrorTypeClientError
	default:
		return ErrorTypeUnknown
	}
}

func classifyByErrorMessage(errStr string) string {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "timeout") || strings.Contains(errLower, "deadline"):
		return ErrorTypeTimeout
	case strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "no such host"):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}
