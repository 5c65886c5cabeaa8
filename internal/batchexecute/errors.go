package batchexecute

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrorType represents different categories of API errors.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeAuthorization
	ErrorTypeRateLimit
	ErrorTypeNotFound
	ErrorTypeInvalidInput
	ErrorTypeServerError
	ErrorTypePermissionDenied
	ErrorTypeUnavailable
)

var errorTypeNames = [...]string{
	ErrorTypeUnknown:          "Unknown",
	ErrorTypeAuthentication:   "Authentication",
	ErrorTypeAuthorization:    "Authorization",
	ErrorTypeRateLimit:        "RateLimit",
	ErrorTypeNotFound:         "NotFound",
	ErrorTypeInvalidInput:     "InvalidInput",
	ErrorTypeServerError:      "ServerError",
	ErrorTypePermissionDenied: "PermissionDenied",
	ErrorTypeUnavailable:      "Unavailable",
}

func (e ErrorType) String() string {
	if e < 0 || int(e) >= len(errorTypeNames) {
		return "Unknown"
	}
	return errorTypeNames[e]
}

// ErrorCode is a known numeric error code returned in place of an RPC payload.
type ErrorCode struct {
	Code    int
	Type    ErrorType
	Message string
}

// APIError represents an error code returned by the batchexecute endpoint.
type APIError struct {
	ErrorCode *ErrorCode
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorCode != nil {
		return fmt.Sprintf("API error %d (%s): %s", e.ErrorCode.Code, e.ErrorCode.Type, e.ErrorCode.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Unwrap reports authentication failures as ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.ErrorCode != nil && e.ErrorCode.Type == ErrorTypeAuthentication {
		return ErrUnauthorized
	}
	return nil
}

var errorCodes = map[int]ErrorCode{
	277566: {277566, ErrorTypeAuthentication, "Authentication required"},
	277567: {277567, ErrorTypeAuthentication, "Authentication token expired"},
	80620:  {80620, ErrorTypeAuthorization, "Access denied"},
	324934: {324934, ErrorTypeRateLimit, "Rate limit exceeded"},
	143:    {143, ErrorTypeNotFound, "Resource not found"},

	// google.rpc.Code values
	2:  {2, ErrorTypeServerError, "Internal server error"},
	3:  {3, ErrorTypeInvalidInput, "Invalid argument"},
	4:  {4, ErrorTypeUnavailable, "Deadline exceeded"},
	5:  {5, ErrorTypeNotFound, "Not found"},
	7:  {7, ErrorTypePermissionDenied, "Permission denied"},
	8:  {8, ErrorTypeRateLimit, "Resource exhausted"},
	9:  {9, ErrorTypeInvalidInput, "Failed precondition"},
	13: {13, ErrorTypeServerError, "Internal error"},
	14: {14, ErrorTypeUnavailable, "Unavailable"},
	16: {16, ErrorTypeAuthentication, "Unauthenticated"},
}

// GetErrorCode returns the ErrorCode for a given numeric code.
func GetErrorCode(code int) (*ErrorCode, bool) {
	ec, ok := errorCodes[code]
	if !ok {
		return nil, false
	}
	return &ec, true
}

// IsErrorResponse checks whether a decoded response carries an error
// instead of a payload. Codes 0 and 1 are success markers.
func IsErrorResponse(response *Response) (*APIError, bool) {
	if response == nil {
		return nil, false
	}
	if response.Error != "" {
		return &APIError{Message: response.Error}, true
	}
	if response.Data == nil {
		return nil, false
	}

	var raw any
	if err := json.Unmarshal(response.Data, &raw); err != nil {
		return nil, false
	}
	switch data := raw.(type) {
	case float64:
		return codeError(int(data), true)
	case string:
		code, err := strconv.Atoi(strings.TrimSpace(data))
		if err != nil {
			return nil, false
		}
		return codeError(code, false)
	case []any:
		if len(data) == 1 {
			if n, ok := data[0].(float64); ok {
				return codeError(int(n), false)
			}
		}
	case map[string]any:
		if msg, ok := data["error"].(string); ok && msg != "" {
			return &APIError{Message: msg}, true
		}
	}
	return nil, false
}

// codeError maps code to an APIError. Unknown codes are only reported when
// the payload was a bare number, since payload arrays routinely start with
// small integers.
func codeError(code int, reportUnknown bool) (*APIError, bool) {
	if code == 0 || code == 1 {
		return nil, false
	}
	if ec, ok := GetErrorCode(code); ok {
		return &APIError{ErrorCode: ec, Message: ec.Message}, true
	}
	if reportUnknown {
		return &APIError{Message: fmt.Sprintf("unknown error code: %d", code)}, true
	}
	return nil, false
}
