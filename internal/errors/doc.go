// Package errors defines error types for the quotewire protocol stack.
//
// This package provides structured error types for the failure scenarios in
// the codec, transport, and session layers. All error types support error
// unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
