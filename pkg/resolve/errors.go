package resolve

import "fmt"

// MissingRequiredParameterError reports a required parameter that no layer
// supplied.
type MissingRequiredParameterError struct {
	Parameter string
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("resolve: required parameter %q was not supplied", e.Parameter)
}

// UnknownParameterError reports a key the schema does not declare.
type UnknownParameterError struct {
	Parameter string
	Layer     LayerName
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("resolve: unknown parameter %q (from %s)", e.Parameter, e.Layer)
}

// LayerError attaches the originating layer to a coercion or validation
// failure.
type LayerError struct {
	Layer LayerName
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("resolve: %s: %v", e.Layer, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }
