package events

import "fmt"

// NotInitializedError is returned by Poll and Consume on a buffer that
// has not been opened, or that has been closed.
type NotInitializedError struct {
	Map string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("event buffer %q is not open", e.Map)
}

// UnknownStructError is returned by Open when the requested decode
// struct is not in the object's registry.
type UnknownStructError struct {
	Map    string
	Struct string
}

func (e *UnknownStructError) Error() string {
	return fmt.Sprintf("event buffer %q: unknown struct %q", e.Map, e.Struct)
}

// PageCountError is returned by Open for a page count that is not a
// positive power of two.
type PageCountError struct {
	Count int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("page count %d is not a positive power of two", e.Count)
}
