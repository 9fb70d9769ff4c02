package tgui

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidButtonData = errors.New("tgui: invalid button data")
	ErrEmptyKeyboard     = errors.New("tgui: inline keyboard has no rows")
)

// ButtonError carries the cause of a failed button construction.
// It matches ErrInvalidButtonData with errors.Is.
type ButtonError struct {
	Cause error
}

func (e *ButtonError) Error() string {
	if e.Cause == nil {
		return ErrInvalidButtonData.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidButtonData.Error(), e.Cause)
}

func (e *ButtonError) Unwrap() error { return e.Cause }

func (e *ButtonError) Is(target error) bool { return target == ErrInvalidButtonData }

func invalid(format string, args ...any) error {
	return &ButtonError{Cause: fmt.Errorf(format, args...)}
}
