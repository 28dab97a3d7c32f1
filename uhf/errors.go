package uhf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies driver failures for programmatic handling.
type ErrorCode int

const (
	// Session errors (100-199)
	ErrCodeNotInitialized ErrorCode = iota + 100
	ErrCodeReleased
	ErrCodeUnknownAntenna
	ErrCodeInvalidEPC
)

const (
	// Transport and reader errors (200-299)
	ErrCodeTransport ErrorCode = iota + 200
	ErrCodeTimeout
	ErrCodeBadFrame
	ErrCodeReaderStatus
	ErrCodeNotSupported
)

// DriverError carries structured failure information out of a Driver.
type DriverError struct {
	Code    ErrorCode
	Op      string // e.g. "InventorySingleTag"
	Message string
	Cause   error
}

func (e *DriverError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *DriverError) Unwrap() error {
	return e.Cause
}

// Is matches any *DriverError with the same code, so sentinels below work
// with errors.Is regardless of Op or Cause.
func (e *DriverError) Is(target error) bool {
	if t, ok := target.(*DriverError); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrNotInitialized = &DriverError{Code: ErrCodeNotInitialized, Message: "reader not initialized"}
	ErrReleased       = &DriverError{Code: ErrCodeReleased, Message: "reader released"}
	ErrUnknownAntenna = &DriverError{Code: ErrCodeUnknownAntenna, Message: "unknown antenna"}
	ErrTimeout        = &DriverError{Code: ErrCodeTimeout, Message: "timed out waiting for reader"}
)

// NewTransportError wraps an I/O failure on the reader link.
func NewTransportError(op string, cause error) *DriverError {
	return &DriverError{
		Code:    ErrCodeTransport,
		Op:      op,
		Message: "transport failure",
		Cause:   cause,
	}
}

// NewTimeoutError reports that no matching response arrived in time.
func NewTimeoutError(op string) *DriverError {
	return &DriverError{
		Code:    ErrCodeTimeout,
		Op:      op,
		Message: "timed out waiting for reader",
	}
}

// NewReaderStatusError reports a non-success status byte from the reader.
func NewReaderStatusError(op string, status byte) *DriverError {
	return &DriverError{
		Code:    ErrCodeReaderStatus,
		Op:      op,
		Message: fmt.Sprintf("reader returned status 0x%02X", status),
	}
}

// NewNotSupportedError reports an operation the connected reader lacks.
func NewNotSupportedError(op string) *DriverError {
	return &DriverError{
		Code:    ErrCodeNotSupported,
		Op:      op,
		Message: "operation not supported",
	}
}

// Errorf creates a DriverError with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...any) *DriverError {
	return &DriverError{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsNotInitialized reports whether err means no usable handle exists,
// either because initializeReader never ran or the handle was released.
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrReleased)
}

// IsTimeout reports whether err is a reader timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// GetErrorCode extracts the ErrorCode from err, or 0 if err is not a DriverError.
func GetErrorCode(err error) ErrorCode {
	var drvErr *DriverError
	if errors.As(err, &drvErr) {
		return drvErr.Code
	}
	return 0
}
