package helper

import "fmt"

// NewError wraps an error with the context it occurred in
func NewError(context string, err error) error {
	return fmt.Errorf("error at %s: %w", context, err)
}
