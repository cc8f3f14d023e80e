// Package utils provides small shared helpers (error wrapping, environment
// variable lookups with typed fallbacks) used by ledgerkernel's ambient
// packages such as pkg/config.
package utils

import "fmt"

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
