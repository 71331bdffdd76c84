// Package utils provides utility functions for the application.
package utils

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// Deref returns the pointed value or the zero value of T
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// StringOr returns s when it is non-empty, otherwise def
func StringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// IntOr returns v when it is positive, otherwise def
func IntOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
