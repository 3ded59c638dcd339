// Package options implements the generic functional option pattern used by
// the configurable types in this module (model fitting, prediction, dataset
// IO). Packages alias Option[T] to a domain-specific name and expose WithXxx
// constructors built from New and NoError.
package options

// Option configures a target of type T. Options constructed with New may
// reject invalid settings by returning an error.
type Option[T any] func(T) error

// New creates an option from a configuration function that can fail.
func New[T any](fn func(T) error) Option[T] {
	return fn
}

// NoError creates an option from a configuration function that cannot fail.
// Most WithXxx constructors use this form.
func NoError[T any](fn func(T)) Option[T] {
	return func(target T) error {
		fn(target)
		return nil
	}
}

// Apply runs the options against target in order and stops at the first
// error. Later options override earlier ones when they touch the same field.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt(target); err != nil {
			return err
		}
	}

	return nil
}
