package shipping

import (
	"errors"
	"fmt"
)

// ProviderError represents a failure reported by a rate provider.
type ProviderError struct {
	Method  string
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Method, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Method, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(method, code, message string) *ProviderError {
	return &ProviderError{
		Method:  method,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// ErrorKind returns a short classification of err for metrics labels.
func ErrorKind(err error) string {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}
	return "unknown"
}

// Sentinel errors.
var (
	// ErrMissingProperty indicates a required property was not provided.
	ErrMissingProperty = errors.New("missing required property")

	// ErrInvalidProperty indicates a property has an invalid value.
	ErrInvalidProperty = errors.New("invalid property")

	// ErrNoRates indicates no rate is available to select from.
	ErrNoRates = errors.New("no shipping rates available")

	// ErrMethodNotFound indicates the shipping method does not exist.
	ErrMethodNotFound = errors.New("shipping method not found")

	// ErrPluginNotFound indicates no rate provider factory is registered under the plugin id.
	ErrPluginNotFound = errors.New("shipping method plugin not found")

	// ErrShipmentNotFound indicates the shipment does not exist.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrInvalidTransition indicates the workflow transition is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid shipment transition")

	// ErrInvalidConfiguration indicates a plugin configuration could not be decoded or is invalid.
	ErrInvalidConfiguration = errors.New("invalid plugin configuration")
)
