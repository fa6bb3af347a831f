// Package errors defines the error types reported by mdbook-dice and a
// collector for commands that keep going after a per-file failure.
package errors

import (
	"fmt"
	"strings"
	"sync"
)

// ErrorCollector collects errors from operations that process many files
type ErrorCollector struct {
	errors []error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// GetErrors returns all collected errors
func (ec *ErrorCollector) GetErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	// Return a copy to avoid race conditions
	result := make([]error, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Err returns nil when nothing was collected, the single error when one
// was, and a summary wrapping all of them otherwise.
func (ec *ErrorCollector) Err() error {
	errs := ec.GetErrors()
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	return &MultiError{Errors: errs}
}

// MultiError reports several independent failures.
type MultiError struct {
	Errors []error
}

// Error lists every failure once, one per line.
func (m *MultiError) Error() string {
	messages := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		messages[i] = "  " + err.Error()
	}
	return fmt.Sprintf("%d errors:\n%s", len(m.Errors), strings.Join(messages, "\n"))
}

// Unwrap lets errors.Is and errors.As reach each failure.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
