package bpfobject

import (
	"errors"
	"fmt"

	"github.com/frobware/go-bpfobject/kernel"
)

// ErrClosed is returned by Object methods after Close.
var ErrClosed = errors.New("object is closed")

// MapNotFoundError is returned when the object has no map of the
// requested name.
type MapNotFoundError struct {
	Name string
}

func (e *MapNotFoundError) Error() string {
	return fmt.Sprintf("map %q not found", e.Name)
}

// MapTypeError is returned by the typed accessors when a map has a
// different kernel type than the one asked for.
type MapTypeError struct {
	Name string
	Want kernel.MapTypeCode
	Got  kernel.MapTypeCode
}

func (e *MapTypeError) Error() string {
	return fmt.Sprintf("map %q is %s, not %s", e.Name, e.Got, e.Want)
}

// ProgramNotFoundError is returned when the object has no program of
// the requested name.
type ProgramNotFoundError struct {
	Name string
}

func (e *ProgramNotFoundError) Error() string {
	return fmt.Sprintf("program %q not found", e.Name)
}
